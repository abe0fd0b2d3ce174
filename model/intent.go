package model

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IntentType discriminates the mutation a TransactionIntent describes.
type IntentType string

const (
	IntentTrustSet           IntentType = "TrustSet"
	IntentPayment            IntentType = "Payment"
	IntentNFTokenMint        IntentType = "NFTokenMint"
	IntentNFTokenCreateOffer IntentType = "NFTokenCreateOffer"
	IntentNFTokenAcceptOffer IntentType = "NFTokenAcceptOffer"
	IntentNFTokenCancelOffer IntentType = "NFTokenCancelOffer"
	IntentNFTokenBurn        IntentType = "NFTokenBurn"
)

// TransactionIntent describes one desired ledger mutation. Only the fields
// relevant to the Type are populated; Validate enforces the per-variant
// required set at the boundary so nothing downstream handles untyped shapes.
type TransactionIntent struct {
	Type      IntentType `json:"type"`
	Account   string     `json:"account"`
	SourceTag uint32     `json:"source_tag"`

	// TrustSet / Payment
	Currency    string `json:"currency,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	Value       string `json:"value,omitempty"`
	Destination string `json:"destination,omitempty"`
	LimitAmount string `json:"limit_amount,omitempty"`
	SetAuth     bool   `json:"set_auth,omitempty"`

	// NFT variants
	TokenID      string `json:"token_id,omitempty"`
	OfferID      string `json:"offer_id,omitempty"`
	URI          string `json:"uri,omitempty"`
	Taxon        uint32 `json:"taxon,omitempty"`
	Transferable bool   `json:"transferable,omitempty"`
	AmountDrops  string `json:"amount_drops,omitempty"`
}

func validCurrencyCode(value interface{}) error {
	code, _ := value.(string)
	if len(code) != 3 && len(code) != 40 {
		return errors.New("currency code must be 3 characters or a 40-character hex code")
	}
	return nil
}

func validAddress(value interface{}) error {
	addr, _ := value.(string)
	if addr == "" {
		return nil // Required rules handle presence
	}
	if !strings.HasPrefix(addr, "r") || len(addr) < 25 || len(addr) > 35 {
		return errors.New("invalid ledger address")
	}
	return nil
}

func positiveAmount(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := ParsePositiveAmount(s)
	return err
}

// Validate checks the variant-specific required fields.
func (t *TransactionIntent) Validate() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Type, validation.Required, validation.In(
			IntentTrustSet, IntentPayment, IntentNFTokenMint, IntentNFTokenCreateOffer,
			IntentNFTokenAcceptOffer, IntentNFTokenCancelOffer, IntentNFTokenBurn,
		)),
		validation.Field(&t.Account, validation.Required, validation.By(validAddress)),
	)
	if err != nil {
		return err
	}

	switch t.Type {
	case IntentTrustSet:
		return validation.ValidateStruct(t,
			validation.Field(&t.Currency, validation.Required, validation.By(validCurrencyCode)),
			validation.Field(&t.Issuer, validation.Required, validation.By(validAddress)),
			validation.Field(&t.LimitAmount, validation.When(!t.SetAuth, validation.Required), validation.By(positiveAmount)),
		)
	case IntentPayment:
		return validation.ValidateStruct(t,
			validation.Field(&t.Destination, validation.Required, validation.By(validAddress)),
			validation.Field(&t.Currency, validation.Required, validation.By(validCurrencyCode)),
			validation.Field(&t.Issuer, validation.Required, validation.By(validAddress)),
			validation.Field(&t.Value, validation.Required, validation.By(positiveAmount)),
		)
	case IntentNFTokenMint:
		return validation.ValidateStruct(t,
			validation.Field(&t.URI, validation.Required, validation.Length(1, 512)),
		)
	case IntentNFTokenCreateOffer:
		return validation.ValidateStruct(t,
			validation.Field(&t.TokenID, validation.Required, validation.Length(64, 64)),
			validation.Field(&t.AmountDrops, validation.Required, validation.By(positiveAmount)),
		)
	case IntentNFTokenAcceptOffer, IntentNFTokenCancelOffer:
		return validation.ValidateStruct(t,
			validation.Field(&t.OfferID, validation.Required, validation.Length(64, 64)),
		)
	case IntentNFTokenBurn:
		return validation.ValidateStruct(t,
			validation.Field(&t.TokenID, validation.Required, validation.Length(64, 64)),
		)
	}
	return nil
}
