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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apimodel "github.com/mintlinehq/mintline/api/model"
)

const idempotencyHeader = "X-Idempotency-Key"

// headerKey fills the idempotency key from the request header when the body
// omits it. The body field wins when both are present.
func headerKey(c *gin.Context, bodyKey string) string {
	if bodyKey != "" {
		return bodyKey
	}
	return c.GetHeader(idempotencyHeader)
}

func (a *Api) IssueAsset(c *gin.Context) {
	var req apimodel.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateIssueRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.IssueAsset(c.Request.Context(), req.IdempotencyKey, req.Currency, req.Value)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (a *Api) DistributeAsset(c *gin.Context) {
	var req apimodel.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateDistributeRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.DistributeAsset(c.Request.Context(), req.IdempotencyKey, req.Currency, req.Value, req.ToRole())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (a *Api) MintToken(c *gin.Context) {
	var req apimodel.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateMintRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.MintToken(c.Request.Context(), req.IdempotencyKey, req.MinterRole(), req.URI, req.Taxon, req.Transferable)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (a *Api) CreateSellOffer(c *gin.Context) {
	var req apimodel.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateCreateOfferRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.CreateSellOffer(c.Request.Context(), req.IdempotencyKey, req.OwnerRole(), req.TokenID, req.AmountDrops)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

func (a *Api) AcceptOffer(c *gin.Context) {
	var req apimodel.AcceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateAcceptOfferRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.AcceptOffer(c.Request.Context(), req.IdempotencyKey, req.BuyerRole(), req.OfferID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (a *Api) CancelOffer(c *gin.Context) {
	var req apimodel.CancelOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateCancelOfferRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.CancelOffer(c.Request.Context(), req.IdempotencyKey, req.OwnerRole(), req.OfferID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (a *Api) BurnToken(c *gin.Context) {
	var req apimodel.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.IdempotencyKey = headerKey(c, req.IdempotencyKey)
	if err := req.ValidateBurnRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := a.orchestrator.BurnToken(c.Request.Context(), req.IdempotencyKey, req.OwnerRole(), req.TokenID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
