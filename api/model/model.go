/*
Copyright 2024 Mintline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package model holds the HTTP request shapes and their validation. Handlers
// validate here at the boundary, then hand typed values to the orchestrator.
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mintlinehq/mintline/model"
)

type IssueRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Currency       string `json:"currency"`
	Value          string `json:"value"`
}

func (r *IssueRequest) ValidateIssueRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.Value, validation.Required),
	)
}

type DistributeRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Currency       string `json:"currency"`
	Value          string `json:"value"`
	To             string `json:"to"`
}

func (r *DistributeRequest) ValidateDistributeRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.Currency, validation.Required),
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.To, validation.Required, validation.In(
			string(model.RoleHot), string(model.RoleSeller), string(model.RoleBuyer),
		)),
	)
}

func (r *DistributeRequest) ToRole() model.Role {
	return model.Role(r.To)
}

type MintRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Minter         string `json:"minter"`
	URI            string `json:"uri"`
	Taxon          uint32 `json:"taxon"`
	Transferable   bool   `json:"transferable"`
}

func (r *MintRequest) ValidateMintRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.URI, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.Minter, validation.In(
			string(model.RoleIssuer), string(model.RoleHot), string(model.RoleSeller), string(model.RoleBuyer),
		)),
	)
}

// MinterRole defaults to the issuer when the request names no minter.
func (r *MintRequest) MinterRole() model.Role {
	if r.Minter == "" {
		return model.RoleIssuer
	}
	return model.Role(r.Minter)
}

type CreateOfferRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Owner          string `json:"owner"`
	TokenID        string `json:"token_id"`
	AmountDrops    string `json:"amount_drops"`
}

func (r *CreateOfferRequest) ValidateCreateOfferRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.TokenID, validation.Required, validation.Length(64, 64)),
		validation.Field(&r.AmountDrops, validation.Required),
	)
}

func (r *CreateOfferRequest) OwnerRole() model.Role {
	if r.Owner == "" {
		return model.RoleSeller
	}
	return model.Role(r.Owner)
}

type AcceptOfferRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Buyer          string `json:"buyer"`
	OfferID        string `json:"offer_id"`
}

func (r *AcceptOfferRequest) ValidateAcceptOfferRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.OfferID, validation.Required, validation.Length(64, 64)),
	)
}

func (r *AcceptOfferRequest) BuyerRole() model.Role {
	if r.Buyer == "" {
		return model.RoleBuyer
	}
	return model.Role(r.Buyer)
}

type CancelOfferRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Owner          string `json:"owner"`
	OfferID        string `json:"offer_id"`
}

func (r *CancelOfferRequest) ValidateCancelOfferRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.OfferID, validation.Required, validation.Length(64, 64)),
	)
}

func (r *CancelOfferRequest) OwnerRole() model.Role {
	if r.Owner == "" {
		return model.RoleSeller
	}
	return model.Role(r.Owner)
}

type BurnRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Owner          string `json:"owner"`
	TokenID        string `json:"token_id"`
}

func (r *BurnRequest) ValidateBurnRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IdempotencyKey, validation.Required),
		validation.Field(&r.TokenID, validation.Required, validation.Length(64, 64)),
	)
}

func (r *BurnRequest) OwnerRole() model.Role {
	if r.Owner == "" {
		return model.RoleIssuer
	}
	return model.Role(r.Owner)
}

type BatchMintItem struct {
	URI          string `json:"uri"`
	Taxon        uint32 `json:"taxon"`
	Transferable bool   `json:"transferable"`
}

type BatchMintRequest struct {
	BatchID string          `json:"batch_id"`
	Minter  string          `json:"minter"`
	Items   []BatchMintItem `json:"items"`
}

func (r *BatchMintRequest) ValidateBatchMintRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 200)),
	)
}

func (r *BatchMintRequest) MinterRole() model.Role {
	if r.Minter == "" {
		return model.RoleIssuer
	}
	return model.Role(r.Minter)
}
