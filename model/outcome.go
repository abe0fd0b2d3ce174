package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind scopes an idempotency key to one logical operation.
type OperationKind string

const (
	KindIssue       OperationKind = "issue"
	KindDistribute  OperationKind = "distribute"
	KindMint        OperationKind = "mint"
	KindOfferCreate OperationKind = "offer_create"
	KindOfferAccept OperationKind = "offer_accept"
	KindOfferCancel OperationKind = "offer_cancel"
	KindBurn        OperationKind = "burn"
)

const (
	OutcomeValidated  = "VALIDATED"
	OutcomeFailed     = "FAILED"
	OutcomeUnresolved = "UNRESOLVED"
)

// SubmissionOutcome is the definitive result of resolving one intent.
// TokenID/OfferID carry the variant-specific artifact on validated success;
// EngineResult carries the network's classification on validated failure;
// Reason explains an unresolved outcome and TxHash (when present) lets a
// caller reconcile it manually.
type SubmissionOutcome struct {
	Status       string `json:"status"`
	TxHash       string `json:"tx_hash,omitempty"`
	EngineResult string `json:"engine_result,omitempty"`
	TokenID      string `json:"token_id,omitempty"`
	OfferID      string `json:"offer_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (o *SubmissionOutcome) ToJSON() ([]byte, error) {
	return json.Marshal(o)
}

func OutcomeFromJSON(data []byte) (*SubmissionOutcome, error) {
	var o SubmissionOutcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// IdempotencyRecord is the persisted (kind, key) → result tuple. Append-only:
// written exactly once per confirmed intent, never mutated.
type IdempotencyRecord struct {
	Kind       OperationKind   `json:"kind"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	RecordedAt time.Time       `json:"recorded_at"`
}

const (
	FundingSufficient   = "SUFFICIENT"
	FundingFunded       = "FUNDED"
	FundingInsufficient = "INSUFFICIENT"
)

// FundingResult reports the funding guard's verdict for an account.
type FundingResult struct {
	Status  string          `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

const (
	AuthOk         = "OK"
	AuthAuthorized = "AUTHORIZED"
)

// AuthResult reports the authorization guard's verdict. TxHash is set only
// when the guard itself submitted an authorization mutation.
type AuthResult struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
}
