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

// Package ledger defines the narrow interface the orchestration layer uses to
// talk to the ledger network, together with the typed wire shapes. Consensus,
// transaction encoding and key generation all live on the other side of this
// boundary.
package ledger

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mintlinehq/mintline/model"
)

// ErrAccountNotFound is returned by AccountInfo for addresses with no
// on-ledger footprint yet.
var ErrAccountNotFound = errors.New("account not found on ledger")

// AccountInfo is the validated on-ledger state of one account.
type AccountInfo struct {
	Address      string `json:"address"`
	BalanceDrops string `json:"balance_drops"`
	Sequence     uint32 `json:"sequence"`
	OwnerCount   uint32 `json:"owner_count"`
}

// TrustLine is one side of a trust relationship as reported by the ledger.
type TrustLine struct {
	Account    string `json:"account"`
	Currency   string `json:"currency"`
	Balance    string `json:"balance"`
	Limit      string `json:"limit"`
	Authorized bool   `json:"peer_authorized"`
}

// SubmitResult is the network's immediate classification of a submission,
// prior to consensus validation.
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxHash              string `json:"tx_hash"`
}

// TxResult is a transaction's state as observed on the ledger. Meta is only
// meaningful once Validated is true.
type TxResult struct {
	Hash         string  `json:"hash"`
	Validated    bool    `json:"validated"`
	EngineResult string  `json:"engine_result"`
	Meta         *TxMeta `json:"meta,omitempty"`
}

// FundedAccount is a faucet-created account.
type FundedAccount struct {
	Address      string `json:"address"`
	Seed         string `json:"seed"`
	BalanceDrops string `json:"balance_drops"`
}

// Client is the collaborator interface for all network round trips. Every
// method honours context cancellation; implementations must not retry
// submissions on their own.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	AccountInfo(ctx context.Context, address string) (*AccountInfo, error)
	AccountLines(ctx context.Context, address, peer string) ([]TrustLine, error)

	AutofillAndSign(ctx context.Context, intent *model.TransactionIntent, seed string) (string, error)
	Submit(ctx context.Context, txBlob string) (*SubmitResult, error)
	SubmitAndWait(ctx context.Context, txBlob string) (*TxResult, error)
	Tx(ctx context.Context, hash string) (*TxResult, error)

	// FundWallet asks the faucet to fund destination; an empty destination
	// lets the faucet create a fresh account.
	FundWallet(ctx context.Context, destination string) (*FundedAccount, error)
}

// IsProvisionalSuccess reports whether an engine result indicates the
// transaction was accepted for a later ledger close. Anything else is a
// terminal rejection.
func IsProvisionalSuccess(engineResult string) bool {
	return strings.HasPrefix(engineResult, "tes")
}

// IsValidatedSuccess reports whether a validated transaction actually
// succeeded; tec-class results are included in ledgers but still failures.
func IsValidatedSuccess(engineResult string) bool {
	return engineResult == "tesSUCCESS"
}
