package mintline

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.opentelemetry.io/otel"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/internal/cache"
	redis_db "github.com/mintlinehq/mintline/internal/redis-db"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
)

const (
	testIssuerAddr = "rIssuerAAAAAAAAAAAAAAAAAAAAAAA"
	testHotAddr    = "rHotBBBBBBBBBBBBBBBBBBBBBBBBBB"
	testSellerAddr = "rSellerCCCCCCCCCCCCCCCCCCCCCC"
	testBuyerAddr  = "rBuyerDDDDDDDDDDDDDDDDDDDDDDD"
	testTxHash     = "E08D6E9754025BA2534A78707605E0601F03ACE063687A0CA1BDDACFCD1698C7"
	testTokenID    = "000800006203F49C21D5D6E022CB16DE3538F248662FC73C258BA5A000000001"
)

// mockLedger scripts the network side. Submissions are counted so tests can
// assert the zero-resubmission guarantees.
type mockLedger struct {
	mu          sync.Mutex
	submitCount int

	infoFn   func(address string) (*ledger.AccountInfo, error)
	linesFn  func(address, peer string) ([]ledger.TrustLine, error)
	submitFn func(submission int) (*ledger.TxResult, error)
	txFn     func(hash string) (*ledger.TxResult, error)
	fundFn   func(destination string) (*ledger.FundedAccount, error)
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		infoFn: func(address string) (*ledger.AccountInfo, error) {
			return &ledger.AccountInfo{Address: address, BalanceDrops: "25000000", Sequence: 1}, nil
		},
		linesFn: func(address, peer string) ([]ledger.TrustLine, error) {
			return nil, nil
		},
		submitFn: func(submission int) (*ledger.TxResult, error) {
			return &ledger.TxResult{
				Hash:         testTxHash,
				Validated:    true,
				EngineResult: "tesSUCCESS",
				Meta:         mintMeta(testTokenID),
			}, nil
		},
		txFn: func(hash string) (*ledger.TxResult, error) {
			return nil, ledger.ErrTxNotFound
		},
	}
}

// mintMeta builds validated metadata holding one freshly minted token.
func mintMeta(tokenID string) *ledger.TxMeta {
	return &ledger.TxMeta{
		TransactionResult: "tesSUCCESS",
		AffectedNodes: []ledger.AffectedNode{
			{CreatedNode: &ledger.NodeData{
				LedgerEntryType: "NFTokenPage",
				NewFields: &ledger.NodeFields{
					NFTokens: []ledger.NFTokenEntry{{NFToken: ledger.NFToken{NFTokenID: tokenID}}},
				},
			}},
		},
	}
}

func offerMeta(offerID string) *ledger.TxMeta {
	return &ledger.TxMeta{
		TransactionResult: "tesSUCCESS",
		AffectedNodes: []ledger.AffectedNode{
			{CreatedNode: &ledger.NodeData{
				LedgerEntryType: "NFTokenOffer",
				LedgerIndex:     offerID,
			}},
		},
	}
}

func (l *mockLedger) Connect(_ context.Context) error    { return nil }
func (l *mockLedger) Disconnect(_ context.Context) error { return nil }

func (l *mockLedger) AccountInfo(_ context.Context, address string) (*ledger.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.infoFn(address)
}

func (l *mockLedger) AccountLines(_ context.Context, address, peer string) ([]ledger.TrustLine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.linesFn(address, peer)
}

func (l *mockLedger) AutofillAndSign(_ context.Context, intent *model.TransactionIntent, seed string) (string, error) {
	return "SIGNEDBLOB", nil
}

func (l *mockLedger) Submit(ctx context.Context, txBlob string) (*ledger.SubmitResult, error) {
	tx, err := l.SubmitAndWait(ctx, txBlob)
	if err != nil {
		return nil, err
	}
	return &ledger.SubmitResult{EngineResult: tx.EngineResult, TxHash: tx.Hash}, nil
}

func (l *mockLedger) SubmitAndWait(_ context.Context, _ string) (*ledger.TxResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitCount++
	return l.submitFn(l.submitCount)
}

func (l *mockLedger) Tx(_ context.Context, hash string) (*ledger.TxResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.txFn(hash)
}

func (l *mockLedger) FundWallet(_ context.Context, destination string) (*ledger.FundedAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fundFn == nil {
		return nil, nil
	}
	return l.fundFn(destination)
}

func (l *mockLedger) submissions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submitCount
}

// memoryStore is an in-memory IDataSource with the real conflict semantics.
type memoryStore struct {
	mu       sync.Mutex
	records  map[string]*model.IdempotencyRecord
	accounts map[model.Role]*model.Account
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records:  make(map[string]*model.IdempotencyRecord),
		accounts: make(map[model.Role]*model.Account),
	}
}

func recordKey(kind model.OperationKind, key string) string {
	return string(kind) + "/" + key
}

func (s *memoryStore) RecordOutcome(_ context.Context, record *model.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[recordKey(record.Kind, record.Key)]
	if ok {
		if bytes.Equal(existing.Payload, record.Payload) {
			return nil
		}
		return apierror.NewAPIError(apierror.ErrConflict, "Idempotency key already holds a different result", record.Key)
	}
	s.records[recordKey(record.Kind, record.Key)] = record
	return nil
}

func (s *memoryStore) GetOutcome(_ context.Context, kind model.OperationKind, key string) (*model.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordKey(kind, key)]
	if !ok {
		return nil, nil
	}
	return record, nil
}

func (s *memoryStore) SaveAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Role] = account
	return nil
}

func (s *memoryStore) GetAccounts(_ context.Context) ([]*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type fixtureOptions struct {
	requireAuth bool
	mainnet     bool
}

func testConfiguration(redisAddr string, opts fixtureOptions) *config.Configuration {
	class := config.NetworkTestnet
	faucet := "https://faucet.test/accounts"
	if opts.mainnet {
		class = config.NetworkMainnet
		faucet = ""
	}
	return &config.Configuration{
		ProjectName: "Mintline Test",
		Redis:       config.RedisConfig{Dns: redisAddr},
		DataSource:  config.DataSourceConfig{Dns: "postgres://test"},
		Network: config.NetworkConfig{
			Endpoint:       "https://node.test/rpc",
			FaucetUrl:      faucet,
			Class:          class,
			SubmitStrategy: config.SubmitStrategyWait,
			SourceTag:      84661000,
		},
		Submission: config.SubmissionConfig{PollIntervalSec: 1, MaxPollAttempts: 2, AccountLockTTLSec: 5},
		Funding:    config.FundingConfig{MinReserve: "10", PollUnitSec: 0},
		Batch:      config.BatchConfig{MaxAttempts: 3, RetryCooldownSec: 0, MaxPollAttempts: 2},
		Queue:      config.QueueConfig{BatchQueue: "new:batch_mint", NumberOfQueues: 2, MaxRetryAttempts: 1},
		Accounts: config.AccountsConfig{
			Issuer: config.AccountConfig{Address: testIssuerAddr, Seed: "sIssuer", RequireAuth: opts.requireAuth},
			Hot:    config.AccountConfig{Address: testHotAddr, Seed: "sHot"},
			Seller: config.AccountConfig{Address: testSellerAddr, Seed: "sSeller"},
			Buyer:  config.AccountConfig{Address: testBuyerAddr, Seed: "sBuyer"},
		},
	}
}

func newTestMintline(t *testing.T, mock *mockLedger, opts fixtureOptions) (*Mintline, *memoryStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	conf := testConfiguration(mr.Addr(), opts)
	config.MockConfig(conf)

	redisClient, err := redis_db.NewRedisClient([]string{mr.Addr()}, false)
	if err != nil {
		t.Fatalf("connecting to miniredis: %v", err)
	}
	sharedCache, err := cache.NewCache()
	if err != nil {
		t.Fatalf("building cache against miniredis: %v", err)
	}

	ms := newMemoryStore()
	return &Mintline{
		datasource: ms,
		ledger:     mock,
		redis:      redisClient.Client(),
		cache:      sharedCache,
		accounts:   AccountsFromConfig(conf),
		submitter:  newSubmitter(conf),
		tracer:     otel.Tracer("mintline.test"),
	}, ms
}
