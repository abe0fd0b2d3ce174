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

package mintline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	redlock "github.com/mintlinehq/mintline/internal/lock"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
)

// OperationRequest is one guarded, idempotent submission.
type OperationRequest struct {
	Kind           model.OperationKind      `json:"kind"`
	IdempotencyKey string                   `json:"idempotency_key"`
	Intent         *model.TransactionIntent `json:"intent"`
}

// Execute runs the full pipeline for one intent: idempotency lookup, guard
// preflight, serialized sign-and-submit, artifact extraction, then the
// definitive write to the idempotency store. The store is only written after
// a validated success, so a replayed key either returns the stored outcome
// without touching the network or runs the pipeline again from the top. The
// key is optional; without one the pipeline runs end to end but skips both
// the lookup and the final write, and the caller owns deduplication.
func (m *Mintline) Execute(ctx context.Context, req *OperationRequest) (*model.SubmissionOutcome, error) {
	ctx, span := m.tracer.Start(ctx, "Execute")
	defer span.End()

	if req == nil || req.Intent == nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Operation requires an intent", nil)
	}

	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if req.Intent.SourceTag == 0 {
		req.Intent.SourceTag = configuration.Network.SourceTag
	}
	if err := req.Intent.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	if req.IdempotencyKey != "" {
		record, err := m.datasource.GetOutcome(ctx, req.Kind, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if record != nil {
			outcome, err := model.OutcomeFromJSON(record.Payload)
			if err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Stored outcome is unreadable", err)
			}
			logrus.Infof("replaying stored outcome for %s/%s, nothing submitted", req.Kind, req.IdempotencyKey)
			return outcome, nil
		}
	}

	account, ok := m.accounts.ByAddress(req.Intent.Account)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("signing account %s is not managed by this deployment", req.Intent.Account), nil)
	}

	if _, err := m.EnsureFunded(ctx, account.Address); err != nil {
		return nil, err
	}
	if req.Intent.Type == model.IntentPayment {
		if _, err := m.EnsureAuthorized(ctx, req.Intent.Destination, req.Intent.Currency); err != nil {
			return nil, err
		}
	}

	tx, err := m.lockedSubmit(ctx, account, req.Intent)
	if err := classifySubmission(tx, err); err != nil {
		return nil, err
	}

	outcome := &model.SubmissionOutcome{
		Status:       model.OutcomeValidated,
		TxHash:       tx.Hash,
		EngineResult: tx.EngineResult,
	}
	if err := attachArtifacts(req.Kind, tx, outcome); err != nil {
		return nil, err
	}
	if req.IdempotencyKey != "" {
		if err := m.recordOutcome(ctx, req.Kind, req.IdempotencyKey, outcome); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// lockedSubmit holds the account-scoped lock across sign and submit so two
// transactions never race for the same sequence number.
func (m *Mintline) lockedSubmit(ctx context.Context, account *model.Account, intent *model.TransactionIntent) (*ledger.TxResult, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(configuration.Submission.AccountLockTTLSec) * time.Second

	locker := redlock.NewAccountLocker(m.redis, account.Address, model.GenerateUUIDWithSuffix("lock"))
	if err := locker.WaitLock(ctx, ttl, ttl); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Could not acquire account submission lock", err)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Warnf("failed to release submission lock for %s: %v", account.Address, err)
		}
	}()

	txBlob, err := m.ledger.AutofillAndSign(ctx, intent, account.Seed)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Signing failed", err)
	}
	return m.submitter.submit(ctx, m.ledger, txBlob)
}

// classifySubmission maps a strategy result onto the failure taxonomy.
// Timeouts keep the hash so callers can reconcile a transaction that may
// still validate; engine rejections are definitive.
func classifySubmission(tx *ledger.TxResult, err error) error {
	if err != nil {
		if errors.Is(err, ledger.ErrNotValidated) {
			hash := ""
			if tx != nil {
				hash = tx.Hash
			}
			return apierror.NewTxRefError(apierror.ErrValidationTimeout,
				"transaction was submitted but not seen in a validated ledger within the wait bound", hash)
		}
		if apiErr, ok := err.(apierror.APIError); ok {
			return apiErr
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Submission failed", err)
	}
	if tx == nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Submission returned no result", nil)
	}
	if !tx.Validated {
		return apierror.NewTxRefError(apierror.ErrEngineRejected,
			fmt.Sprintf("transaction rejected by the engine: %s", tx.EngineResult), tx.Hash)
	}
	if !ledger.IsValidatedSuccess(tx.EngineResult) {
		return apierror.NewTxRefError(apierror.ErrEngineRejected,
			fmt.Sprintf("transaction validated as a failure: %s", tx.EngineResult), tx.Hash)
	}
	return nil
}

// attachArtifacts pulls the operation's artifact out of validated metadata.
// Only mint and offer-create produce artifacts; for everything else the hash
// is the whole story.
func attachArtifacts(kind model.OperationKind, tx *ledger.TxResult, outcome *model.SubmissionOutcome) error {
	switch kind {
	case model.KindMint:
		tokenID, err := ledger.ExtractMintedTokenID(tx.Meta)
		if err != nil {
			return apierror.NewTxRefError(apierror.ErrArtifactNotFound,
				"mint validated but no new token id found in metadata", tx.Hash)
		}
		outcome.TokenID = tokenID
	case model.KindOfferCreate:
		offerID, err := ledger.ExtractCreatedOfferID(tx.Meta)
		if err != nil {
			return apierror.NewTxRefError(apierror.ErrArtifactNotFound,
				"offer validated but no created offer entry found in metadata", tx.Hash)
		}
		outcome.OfferID = offerID
	}
	return nil
}

func (m *Mintline) recordOutcome(ctx context.Context, kind model.OperationKind, key string, outcome *model.SubmissionOutcome) error {
	payload, err := outcome.ToJSON()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to encode outcome", err)
	}
	return m.datasource.RecordOutcome(ctx, &model.IdempotencyRecord{
		Kind:       kind,
		Key:        key,
		Payload:    payload,
		RecordedAt: time.Now(),
	})
}

func (m *Mintline) roleAccount(role model.Role) (*model.Account, error) {
	account, ok := m.accounts.ByRole(role)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("no %s account configured", role), nil)
	}
	return account, nil
}

// IssueAsset moves freshly issued currency from the issuer to the hot wallet.
func (m *Mintline) IssueAsset(ctx context.Context, idempotencyKey, currency, value string) (*model.SubmissionOutcome, error) {
	issuer, err := m.roleAccount(model.RoleIssuer)
	if err != nil {
		return nil, err
	}
	hot, err := m.roleAccount(model.RoleHot)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindIssue,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:        model.IntentPayment,
			Account:     issuer.Address,
			Destination: hot.Address,
			Currency:    currency,
			Issuer:      issuer.Address,
			Value:       value,
		},
	})
}

// DistributeAsset pays issued currency from the hot wallet to another
// managed account.
func (m *Mintline) DistributeAsset(ctx context.Context, idempotencyKey, currency, value string, to model.Role) (*model.SubmissionOutcome, error) {
	issuer, err := m.roleAccount(model.RoleIssuer)
	if err != nil {
		return nil, err
	}
	hot, err := m.roleAccount(model.RoleHot)
	if err != nil {
		return nil, err
	}
	destination, err := m.roleAccount(to)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindDistribute,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:        model.IntentPayment,
			Account:     hot.Address,
			Destination: destination.Address,
			Currency:    currency,
			Issuer:      issuer.Address,
			Value:       value,
		},
	})
}

// MintToken mints one NFT from the minter role's account.
func (m *Mintline) MintToken(ctx context.Context, idempotencyKey string, minter model.Role, uri string, taxon uint32, transferable bool) (*model.SubmissionOutcome, error) {
	account, err := m.roleAccount(minter)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindMint,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:         model.IntentNFTokenMint,
			Account:      account.Address,
			URI:          uri,
			Taxon:        taxon,
			Transferable: transferable,
		},
	})
}

// CreateSellOffer lists a token at a fixed drops price.
func (m *Mintline) CreateSellOffer(ctx context.Context, idempotencyKey string, owner model.Role, tokenID, amountDrops string) (*model.SubmissionOutcome, error) {
	account, err := m.roleAccount(owner)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindOfferCreate,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:        model.IntentNFTokenCreateOffer,
			Account:     account.Address,
			TokenID:     tokenID,
			AmountDrops: amountDrops,
		},
	})
}

// AcceptOffer takes an open sell offer.
func (m *Mintline) AcceptOffer(ctx context.Context, idempotencyKey string, buyer model.Role, offerID string) (*model.SubmissionOutcome, error) {
	account, err := m.roleAccount(buyer)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindOfferAccept,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:    model.IntentNFTokenAcceptOffer,
			Account: account.Address,
			OfferID: offerID,
		},
	})
}

// CancelOffer withdraws an open offer.
func (m *Mintline) CancelOffer(ctx context.Context, idempotencyKey string, owner model.Role, offerID string) (*model.SubmissionOutcome, error) {
	account, err := m.roleAccount(owner)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindOfferCancel,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:    model.IntentNFTokenCancelOffer,
			Account: account.Address,
			OfferID: offerID,
		},
	})
}

// BurnToken permanently retires a token held by the owner role.
func (m *Mintline) BurnToken(ctx context.Context, idempotencyKey string, owner model.Role, tokenID string) (*model.SubmissionOutcome, error) {
	account, err := m.roleAccount(owner)
	if err != nil {
		return nil, err
	}
	return m.Execute(ctx, &OperationRequest{
		Kind:           model.KindBurn,
		IdempotencyKey: idempotencyKey,
		Intent: &model.TransactionIntent{
			Type:    model.IntentNFTokenBurn,
			Account: account.Address,
			TokenID: tokenID,
		},
	})
}
