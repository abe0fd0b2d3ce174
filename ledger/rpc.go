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

package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/request"
	"github.com/mintlinehq/mintline/model"
)

// Transaction flag bits.
const (
	tfSetfAuth     uint32 = 0x00010000
	tfTransferable uint32 = 0x00000008
	tfSellNFToken  uint32 = 0x00000001
)

// ErrTxNotFound means the queried hash is not yet in any ledger the node has.
// Pollers treat it as "still pending".
var ErrTxNotFound = errors.New("transaction not found on ledger")

// ErrNotValidated is returned by SubmitAndWait when the wait bound elapses
// before the transaction reaches a validated ledger. The accompanying
// TxResult still carries the hash for later reconciliation.
var ErrNotValidated = errors.New("transaction not validated within wait bound")

// RPCClient talks JSON-RPC over HTTP to a ledger node. It is stateless and
// safe for concurrent use.
type RPCClient struct {
	endpoint     string
	faucetURL    string
	waitInterval time.Duration
	waitAttempts int
}

// NewRPCClient builds a client from the loaded configuration.
func NewRPCClient() (*RPCClient, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &RPCClient{
		endpoint:     conf.Network.Endpoint,
		faucetURL:    conf.Network.FaucetUrl,
		waitInterval: time.Duration(conf.Submission.PollIntervalSec) * time.Second,
		waitAttempts: conf.Submission.MaxPollAttempts,
	}, nil
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// call performs one JSON-RPC round trip and decodes result into out. The
// returned rpcStatus carries the node-level error fields, which callers map
// to typed errors per method.
func (c *RPCClient) call(ctx context.Context, method string, params interface{}, out interface{}) (*rpcStatus, error) {
	payload, err := request.ToJsonReq(&rpcRequest{Method: method, Params: []interface{}{params}})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s request", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request", method)
	}

	var envelope rpcEnvelope
	resp, err := request.Call(req, &envelope)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s on %s", method, c.endpoint)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("%s returned HTTP %d", method, resp.StatusCode)
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return nil, errors.Wrapf(err, "decoding %s status", method)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return nil, errors.Wrapf(err, "decoding %s result", method)
		}
	}
	return &status, nil
}

// callWithRetry wraps read-only calls in a short exponential backoff for
// transport-level failures. Submissions never go through here.
func (c *RPCClient) callWithRetry(ctx context.Context, method string, params interface{}, out interface{}) (*rpcStatus, error) {
	var status *rpcStatus
	operation := func() error {
		var err error
		status, err = c.call(ctx, method, params, out)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return status, nil
}

// Connect verifies the node answers. HTTP JSON-RPC holds no session, so this
// is a health probe rather than a handshake.
func (c *RPCClient) Connect(ctx context.Context) error {
	status, err := c.call(ctx, "server_info", map[string]interface{}{}, nil)
	if err != nil {
		return err
	}
	if status.Error != "" {
		return errors.Errorf("ledger node rejected server_info: %s", status.Error)
	}
	logrus.Infof("connected to ledger node %s", c.endpoint)
	return nil
}

func (c *RPCClient) Disconnect(_ context.Context) error {
	return nil
}

type accountInfoResult struct {
	AccountData struct {
		Account    string `json:"Account"`
		Balance    string `json:"Balance"`
		Sequence   uint32 `json:"Sequence"`
		OwnerCount uint32 `json:"OwnerCount"`
	} `json:"account_data"`
}

func (c *RPCClient) AccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	params := map[string]interface{}{"account": address, "ledger_index": "validated"}
	var result accountInfoResult
	status, err := c.callWithRetry(ctx, "account_info", params, &result)
	if err != nil {
		return nil, err
	}
	if status.Error == "actNotFound" {
		return nil, errors.Wrap(ErrAccountNotFound, address)
	}
	if status.Error != "" {
		return nil, errors.Errorf("account_info for %s failed: %s", address, status.Error)
	}
	return &AccountInfo{
		Address:      result.AccountData.Account,
		BalanceDrops: result.AccountData.Balance,
		Sequence:     result.AccountData.Sequence,
		OwnerCount:   result.AccountData.OwnerCount,
	}, nil
}

type accountLinesResult struct {
	Lines []struct {
		Account        string `json:"account"`
		Currency       string `json:"currency"`
		Balance        string `json:"balance"`
		Limit          string `json:"limit"`
		PeerAuthorized bool   `json:"peer_authorized"`
	} `json:"lines"`
}

func (c *RPCClient) AccountLines(ctx context.Context, address, peer string) ([]TrustLine, error) {
	params := map[string]interface{}{"account": address, "peer": peer, "ledger_index": "validated"}
	var result accountLinesResult
	status, err := c.callWithRetry(ctx, "account_lines", params, &result)
	if err != nil {
		return nil, err
	}
	if status.Error == "actNotFound" {
		return nil, errors.Wrap(ErrAccountNotFound, address)
	}
	if status.Error != "" {
		return nil, errors.Errorf("account_lines for %s failed: %s", address, status.Error)
	}

	lines := make([]TrustLine, 0, len(result.Lines))
	for _, l := range result.Lines {
		lines = append(lines, TrustLine{
			Account:    l.Account,
			Currency:   l.Currency,
			Balance:    l.Balance,
			Limit:      l.Limit,
			Authorized: l.PeerAuthorized,
		})
	}
	return lines, nil
}

type signResult struct {
	TxBlob string `json:"tx_blob"`
}

// AutofillAndSign builds the canonical tx_json for an intent and has the node
// fill sequence and fee before signing. The seed never leaves the request.
func (c *RPCClient) AutofillAndSign(ctx context.Context, intent *model.TransactionIntent, seed string) (string, error) {
	txJSON, err := buildTxJSON(intent)
	if err != nil {
		return "", err
	}
	params := map[string]interface{}{"tx_json": txJSON, "secret": seed, "offline": false}
	var result signResult
	status, err := c.call(ctx, "sign", params, &result)
	if err != nil {
		return "", err
	}
	if status.Error != "" {
		return "", errors.Errorf("signing %s for %s failed: %s", intent.Type, intent.Account, status.Error)
	}
	return result.TxBlob, nil
}

type submitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// Submit pushes a signed blob to the network exactly once and returns the
// provisional engine classification. No retries here, ever; resubmission
// decisions belong to the orchestration layer.
func (c *RPCClient) Submit(ctx context.Context, txBlob string) (*SubmitResult, error) {
	var result submitResult
	status, err := c.call(ctx, "submit", map[string]interface{}{"tx_blob": txBlob}, &result)
	if err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, errors.Errorf("submit failed: %s (%s)", status.Error, status.ErrorMessage)
	}
	return &SubmitResult{
		EngineResult:        result.EngineResult,
		EngineResultMessage: result.EngineResultMessage,
		TxHash:              result.TxJSON.Hash,
	}, nil
}

// SubmitAndWait submits a blob then blocks until the transaction appears in a
// validated ledger or the configured wait bound elapses.
func (c *RPCClient) SubmitAndWait(ctx context.Context, txBlob string) (*TxResult, error) {
	submitted, err := c.Submit(ctx, txBlob)
	if err != nil {
		return nil, err
	}
	if !IsProvisionalSuccess(submitted.EngineResult) {
		return &TxResult{
			Hash:         submitted.TxHash,
			Validated:    false,
			EngineResult: submitted.EngineResult,
		}, nil
	}

	for attempt := 0; attempt < c.waitAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return &TxResult{Hash: submitted.TxHash}, ctx.Err()
		case <-time.After(c.waitInterval):
		}

		tx, err := c.Tx(ctx, submitted.TxHash)
		if err != nil {
			if errors.Is(err, ErrTxNotFound) {
				continue
			}
			return &TxResult{Hash: submitted.TxHash}, err
		}
		if tx.Validated {
			return tx, nil
		}
	}
	return &TxResult{Hash: submitted.TxHash, Validated: false}, errors.Wrap(ErrNotValidated, submitted.TxHash)
}

type txLookupResult struct {
	Hash      string `json:"hash"`
	Validated bool   `json:"validated"`
	Meta      *TxMeta
}

// tx lookups report metadata under "meta" or "metaData" depending on node
// version, so decoding is done by hand for that field.
func (r *txLookupResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Hash      string          `json:"hash"`
		Validated bool            `json:"validated"`
		Meta      json.RawMessage `json:"meta"`
		MetaData  json.RawMessage `json:"metaData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Hash = raw.Hash
	r.Validated = raw.Validated

	metaRaw := raw.Meta
	if len(metaRaw) == 0 {
		metaRaw = raw.MetaData
	}
	if len(metaRaw) > 0 {
		var meta TxMeta
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return err
		}
		r.Meta = &meta
	}
	return nil
}

func (c *RPCClient) Tx(ctx context.Context, hash string) (*TxResult, error) {
	params := map[string]interface{}{"transaction": hash, "binary": false}
	var result txLookupResult
	status, err := c.callWithRetry(ctx, "tx", params, &result)
	if err != nil {
		return nil, err
	}
	if status.Error == "txnNotFound" {
		return nil, errors.Wrap(ErrTxNotFound, hash)
	}
	if status.Error != "" {
		return nil, errors.Errorf("tx lookup for %s failed: %s", hash, status.Error)
	}

	tx := &TxResult{Hash: result.Hash, Validated: result.Validated, Meta: result.Meta}
	if tx.Hash == "" {
		tx.Hash = hash
	}
	if result.Meta != nil {
		tx.EngineResult = result.Meta.TransactionResult
	}
	return tx, nil
}

type faucetResponse struct {
	Account struct {
		Address        string `json:"address"`
		ClassicAddress string `json:"classicAddress"`
		Secret         string `json:"secret"`
	} `json:"account"`
	Balance json.Number `json:"balance"`
}

// FundWallet asks the network faucet for funding. Faucets only exist on
// test-class networks; callers gate on configuration before invoking.
func (c *RPCClient) FundWallet(ctx context.Context, destination string) (*FundedAccount, error) {
	if c.faucetURL == "" {
		return nil, errors.New("no faucet configured for this network")
	}

	body := map[string]interface{}{}
	if destination != "" {
		body["destination"] = destination
	}
	payload, err := request.ToJsonReq(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.faucetURL, payload)
	if err != nil {
		return nil, err
	}

	var result faucetResponse
	resp, err := request.Call(req, &result)
	if err != nil {
		return nil, errors.Wrap(err, "calling faucet")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("faucet returned HTTP %d", resp.StatusCode)
	}

	address := result.Account.Address
	if address == "" {
		address = result.Account.ClassicAddress
	}
	if address == "" {
		// Topping up an existing account; some faucets echo nothing back.
		address = destination
	}
	if address == "" {
		return nil, errors.New("faucet response carried no account address")
	}

	funded := &FundedAccount{Address: address, Seed: result.Account.Secret}
	if result.Balance != "" {
		// Faucets report balance in XRP, the rest of the pipeline works in drops.
		xrp, err := model.ParsePositiveAmount(result.Balance.String())
		if err == nil {
			funded.BalanceDrops = model.XRPToDrops(xrp)
		}
	}
	logrus.Infof("faucet funded account %s", address)
	return funded, nil
}

// buildTxJSON maps an intent onto the canonical transaction shape the node
// signs. Validation has already run; this only translates fields.
func buildTxJSON(intent *model.TransactionIntent) (map[string]interface{}, error) {
	tx := map[string]interface{}{
		"Account": intent.Account,
	}
	if intent.SourceTag > 0 {
		tx["SourceTag"] = intent.SourceTag
	}

	switch intent.Type {
	case model.IntentTrustSet:
		tx["TransactionType"] = "TrustSet"
		limit := intent.LimitAmount
		if intent.SetAuth {
			tx["Flags"] = tfSetfAuth
			if limit == "" {
				limit = "0"
			}
		}
		tx["LimitAmount"] = map[string]string{
			"currency": intent.Currency,
			"issuer":   intent.Issuer,
			"value":    limit,
		}
	case model.IntentPayment:
		tx["TransactionType"] = "Payment"
		tx["Destination"] = intent.Destination
		tx["Amount"] = map[string]string{
			"currency": intent.Currency,
			"issuer":   intent.Issuer,
			"value":    intent.Value,
		}
	case model.IntentNFTokenMint:
		tx["TransactionType"] = "NFTokenMint"
		tx["URI"] = strings.ToUpper(hex.EncodeToString([]byte(intent.URI)))
		tx["NFTokenTaxon"] = intent.Taxon
		if intent.Transferable {
			tx["Flags"] = tfTransferable
		}
	case model.IntentNFTokenCreateOffer:
		tx["TransactionType"] = "NFTokenCreateOffer"
		tx["NFTokenID"] = intent.TokenID
		tx["Amount"] = intent.AmountDrops
		tx["Flags"] = tfSellNFToken
	case model.IntentNFTokenAcceptOffer:
		tx["TransactionType"] = "NFTokenAcceptOffer"
		tx["NFTokenSellOffer"] = intent.OfferID
	case model.IntentNFTokenCancelOffer:
		tx["TransactionType"] = "NFTokenCancelOffer"
		tx["NFTokenOffers"] = []string{intent.OfferID}
	case model.IntentNFTokenBurn:
		tx["TransactionType"] = "NFTokenBurn"
		tx["NFTokenID"] = intent.TokenID
	default:
		return nil, fmt.Errorf("unsupported intent type %q", intent.Type)
	}
	return tx, nil
}
