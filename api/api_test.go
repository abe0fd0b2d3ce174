package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	mintline "github.com/mintlinehq/mintline"
	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/model"
)

const (
	testIssuerAddr = "rIssuerAAAAAAAAAAAAAAAAAAAAAAA"
	testTokenID    = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C258BA5A000000001"
	testTxHash     = "E08D6E9754025BA2534A78707605E0601F03ACE063687A0CA1BDDACFCD1698C7"
)

// stubOrchestrator returns canned outcomes and records nothing.
type stubOrchestrator struct {
	outcome *model.SubmissionOutcome
	batch   *model.BatchResult
	err     error
}

func (s *stubOrchestrator) IssueAsset(_ context.Context, _, _, _ string) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) DistributeAsset(_ context.Context, _, _, _ string, _ model.Role) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) MintToken(_ context.Context, _ string, _ model.Role, _ string, _ uint32, _ bool) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) CreateSellOffer(_ context.Context, _ string, _ model.Role, _, _ string) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) AcceptOffer(_ context.Context, _ string, _ model.Role, _ string) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) CancelOffer(_ context.Context, _ string, _ model.Role, _ string) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) BurnToken(_ context.Context, _ string, _ model.Role, _ string) (*model.SubmissionOutcome, error) {
	return s.outcome, s.err
}

func (s *stubOrchestrator) RunBatch(_ context.Context, _ *mintline.BatchRequest, observer model.BatchObserver) (*model.BatchResult, error) {
	if observer != nil && s.batch != nil {
		observer(model.BatchEvent{Type: model.EventBatchComplete, BatchID: s.batch.BatchID})
	}
	return s.batch, s.err
}

func (s *stubOrchestrator) EnqueueBatchMint(_ context.Context, req *mintline.BatchRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if req.BatchID == "" {
		return "batch_generated", nil
	}
	return req.BatchID, nil
}

func (s *stubOrchestrator) Accounts() *model.AccountSet {
	return model.NewAccountSet(&model.Account{Role: model.RoleIssuer, Address: testIssuerAddr, Seed: "sIssuer", RequireAuth: true})
}

func testAPIConfig(secure bool) *config.Configuration {
	return &config.Configuration{
		ProjectName: "Mintline Test",
		Server:      config.ServerConfig{Secure: secure, SecretKey: "topsecret", Port: "4100"},
		Network:     config.NetworkConfig{Endpoint: "https://node.test/rpc", Class: config.NetworkTestnet},
		Rate:        config.RateConfig{Url: "https://rates.test/xrp", TTLSec: 300},
	}
}

func newTestAPI(t *testing.T, stub *stubOrchestrator, secure bool) *Api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.MockConfig(testAPIConfig(secure))
	return NewAPI(stub)
}

func postJSON(t *testing.T, a *Api, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func TestIssueAssetEndpoint(t *testing.T) {
	stub := &stubOrchestrator{outcome: &model.SubmissionOutcome{Status: model.OutcomeValidated, TxHash: testTxHash}}
	a := newTestAPI(t, stub, false)

	w := postJSON(t, a, "/assets/issue", gin.H{"idempotency_key": "issue-001", "currency": "USD", "value": "1000000"})
	assert.Equal(t, http.StatusOK, w.Code)

	var outcome model.SubmissionOutcome
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, testTxHash, outcome.TxHash)
}

func TestIssueAssetEndpoint_HeaderIdempotencyKey(t *testing.T) {
	stub := &stubOrchestrator{outcome: &model.SubmissionOutcome{Status: model.OutcomeValidated, TxHash: testTxHash}}
	a := newTestAPI(t, stub, false)

	body, err := json.Marshal(gin.H{"currency": "USD", "value": "1000000"})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/assets/issue", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", "issue-hdr-001")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssueAssetEndpoint_MissingFields(t *testing.T) {
	a := newTestAPI(t, &stubOrchestrator{}, false)

	w := postJSON(t, a, "/assets/issue", gin.H{"currency": "USD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMintEndpoint_TaxonomyStatusMapping(t *testing.T) {
	stub := &stubOrchestrator{err: apierror.NewAPIError(apierror.ErrInsufficientReserve, "below reserve", nil)}
	a := newTestAPI(t, stub, false)

	w := postJSON(t, a, "/nfts/mint", gin.H{"idempotency_key": "mint-001", "uri": "ipfs://Qm"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apierror.ErrInsufficientReserve), body["code"])
}

func TestMintEndpoint_TimeoutCarriesTxRef(t *testing.T) {
	stub := &stubOrchestrator{err: apierror.NewTxRefError(apierror.ErrValidationTimeout, "not validated in time", testTxHash)}
	a := newTestAPI(t, stub, false)

	w := postJSON(t, a, "/nfts/mint", gin.H{"idempotency_key": "mint-002", "uri": "ipfs://Qm"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testTxHash, body["tx_ref"])
}

func TestCreateOfferEndpoint(t *testing.T) {
	stub := &stubOrchestrator{outcome: &model.SubmissionOutcome{Status: model.OutcomeValidated, TxHash: testTxHash, OfferID: testTokenID}}
	a := newTestAPI(t, stub, false)

	w := postJSON(t, a, "/nfts/offers", gin.H{"idempotency_key": "offer-001", "token_id": testTokenID, "amount_drops": "1000000"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, a, "/nfts/offers", gin.H{"idempotency_key": "offer-002", "token_id": "short", "amount_drops": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchMintEndpoint_Sync(t *testing.T) {
	stub := &stubOrchestrator{batch: &model.BatchResult{BatchID: "batch_1", Requested: 2, Processed: 2, Completed: true}}
	a := newTestAPI(t, stub, false)

	w := postJSON(t, a, "/nfts/batch-mint", gin.H{
		"batch_id": "batch_1",
		"items":    []gin.H{{"uri": "ipfs://a"}, {"uri": "ipfs://b"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var result model.BatchResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Completed)
}

func TestBatchMintEndpoint_Async(t *testing.T) {
	a := newTestAPI(t, &stubOrchestrator{}, false)

	w := postJSON(t, a, "/nfts/batch-mint?async=true", gin.H{
		"batch_id": "batch_2",
		"items":    []gin.H{{"uri": "ipfs://a"}},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "batch_2", body["batch_id"])
}

func TestBatchMintEndpoint_EmptyItems(t *testing.T) {
	a := newTestAPI(t, &stubOrchestrator{}, false)

	w := postJSON(t, a, "/nfts/batch-mint", gin.H{"batch_id": "batch_3", "items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAccountEndpoint(t *testing.T) {
	a := newTestAPI(t, &stubOrchestrator{}, false)

	req := httptest.NewRequest(http.MethodGet, "/accounts/issuer", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var account model.Account
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
	assert.Equal(t, testIssuerAddr, account.Address)
	assert.NotContains(t, w.Body.String(), "sIssuer")

	req = httptest.NewRequest(http.MethodGet, "/accounts/treasury", nil)
	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecretKeyAuth(t *testing.T) {
	a := newTestAPI(t, &stubOrchestrator{}, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Mintline-Key", "topsecret")
	w = httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetXRPRateEndpoint(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodGet, "https://rates.test/xrp",
		httpmock.NewStringResponder(http.StatusOK, `{"rate":"0.52"}`))

	a := newTestAPI(t, &stubOrchestrator{}, false)

	req := httptest.NewRequest(http.MethodGet, "/rates/xrp", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0.52")
}
