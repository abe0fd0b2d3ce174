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

package model

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	testIssuer = "rIssuerAAAAAAAAAAAAAAAAAAAAAAA"
	testHot    = "rHotBBBBBBBBBBBBBBBBBBBBBBBBBB"
	testToken  = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C258BA5A000000001"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("batch")
	assert.True(t, strings.HasPrefix(id, "batch_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("batch"))
}

func TestDropsConversion(t *testing.T) {
	xrp, err := DropsToXRP("25000000")
	assert.NoError(t, err)
	assert.True(t, xrp.Equal(decimal.NewFromInt(25)))

	assert.Equal(t, "25000000", XRPToDrops(decimal.NewFromInt(25)))

	_, err = DropsToXRP("not-a-number")
	assert.Error(t, err)
}

func TestParsePositiveAmount(t *testing.T) {
	d, err := ParsePositiveAmount("1000000")
	assert.NoError(t, err)
	assert.True(t, d.IsPositive())

	_, err = ParsePositiveAmount("0")
	assert.Error(t, err)
	_, err = ParsePositiveAmount("-5")
	assert.Error(t, err)
	_, err = ParsePositiveAmount("12x")
	assert.Error(t, err)
}

func TestAccountSet(t *testing.T) {
	issuer := &Account{Role: RoleIssuer, Address: testIssuer, RequireAuth: true}
	hot := &Account{Role: RoleHot, Address: testHot}
	set := NewAccountSet(issuer, hot)

	assert.True(t, set.Managed(testIssuer))
	assert.True(t, set.Managed(testHot))
	assert.False(t, set.Managed("rStranger000000000000000000000"))

	got, ok := set.ByRole(RoleIssuer)
	assert.True(t, ok)
	assert.Equal(t, testIssuer, got.Address)

	_, ok = set.ByRole(RoleBuyer)
	assert.False(t, ok)
	assert.Len(t, set.All(), 2)
}

func TestIntentValidate_Payment(t *testing.T) {
	intent := &TransactionIntent{
		Type:        IntentPayment,
		Account:     testIssuer,
		Destination: testHot,
		Currency:    "USD",
		Issuer:      testIssuer,
		Value:       "1000000",
	}
	assert.NoError(t, intent.Validate())

	intent.Value = "-3"
	assert.Error(t, intent.Validate())

	intent.Value = "5"
	intent.Currency = "US"
	assert.Error(t, intent.Validate())

	intent.Currency = "USD"
	intent.Destination = ""
	assert.Error(t, intent.Validate())
}

func TestIntentValidate_TrustSet(t *testing.T) {
	intent := &TransactionIntent{
		Type:        IntentTrustSet,
		Account:     testHot,
		Currency:    "USD",
		Issuer:      testIssuer,
		LimitAmount: "100000000",
	}
	assert.NoError(t, intent.Validate())

	// Issuer-side authorization TrustSet carries no limit
	auth := &TransactionIntent{
		Type:     IntentTrustSet,
		Account:  testIssuer,
		Currency: "USD",
		Issuer:   testIssuer,
		SetAuth:  true,
	}
	assert.NoError(t, auth.Validate())
}

func TestIntentValidate_NFTVariants(t *testing.T) {
	mint := &TransactionIntent{Type: IntentNFTokenMint, Account: testIssuer, URI: "ipfs://QmExample"}
	assert.NoError(t, mint.Validate())

	mint.URI = ""
	assert.Error(t, mint.Validate())

	offer := &TransactionIntent{Type: IntentNFTokenCreateOffer, Account: testIssuer, TokenID: testToken, AmountDrops: "1000000"}
	assert.NoError(t, offer.Validate())

	offer.TokenID = "short"
	assert.Error(t, offer.Validate())

	accept := &TransactionIntent{Type: IntentNFTokenAcceptOffer, Account: testHot, OfferID: testToken}
	assert.NoError(t, accept.Validate())

	burn := &TransactionIntent{Type: IntentNFTokenBurn, Account: testIssuer}
	assert.Error(t, burn.Validate())
}

func TestIntentValidate_UnknownTypeAndAddress(t *testing.T) {
	intent := &TransactionIntent{Type: "Teleport", Account: testIssuer}
	assert.Error(t, intent.Validate())

	intent = &TransactionIntent{Type: IntentNFTokenMint, Account: "xNotAnAddress", URI: "ipfs://x"}
	assert.Error(t, intent.Validate())
}

func TestOutcomeRoundTrip(t *testing.T) {
	o := &SubmissionOutcome{Status: OutcomeValidated, TxHash: "ABC", EngineResult: "tesSUCCESS", TokenID: testToken}
	data, err := o.ToJSON()
	assert.NoError(t, err)

	back, err := OutcomeFromJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, o, back)
}

func TestBatchItemKey(t *testing.T) {
	assert.Equal(t, "b1-1", BatchItemKey("b1", 1))
	assert.Equal(t, "b1-3", BatchItemKey("b1", 3))
}
