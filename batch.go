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

	"github.com/sirupsen/logrus"

	"github.com/mintlinehq/mintline/config"
	"github.com/mintlinehq/mintline/internal/apierror"
	"github.com/mintlinehq/mintline/ledger"
	"github.com/mintlinehq/mintline/model"
)

// MintItem is one token to mint within a batch.
type MintItem struct {
	URI          string `json:"uri"`
	Taxon        uint32 `json:"taxon"`
	Transferable bool   `json:"transferable"`
}

// BatchRequest mints a sequence of tokens under one batch id. Re-running a
// halted batch with the same id resumes after the last completed item, since
// each item's idempotency key is derived from the id and position.
type BatchRequest struct {
	BatchID string     `json:"batch_id"`
	Minter  model.Role `json:"minter,omitempty"`
	Items   []MintItem `json:"items"`
}

// RunBatch processes items strictly in order, one in flight at a time. Items
// that fail on timing get up to the configured attempts with a cooldown in
// between; before each resubmission the original hash is re-checked in case
// the transaction validated while we waited. The first terminal failure
// halts the batch; items after it are never attempted.
func (m *Mintline) RunBatch(ctx context.Context, req *BatchRequest, observer model.BatchObserver) (*model.BatchResult, error) {
	ctx, span := m.tracer.Start(ctx, "RunBatch")
	defer span.End()

	if req == nil || len(req.Items) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Batch requires at least one item", nil)
	}
	if req.BatchID == "" {
		req.BatchID = model.GenerateUUIDWithSuffix("batch")
	}
	minter := req.Minter
	if minter == "" {
		minter = model.RoleIssuer
	}

	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	maxAttempts := configuration.Batch.MaxAttempts
	cooldown := time.Duration(configuration.Batch.RetryCooldownSec) * time.Second

	result := &model.BatchResult{BatchID: req.BatchID, Requested: len(req.Items)}
	emit := func(event model.BatchEvent) {
		if observer != nil {
			event.BatchID = req.BatchID
			observer(event)
		}
	}

	logrus.Infof("batch %s: %d items, minter %s", req.BatchID, len(req.Items), minter)

	for i, item := range req.Items {
		index := i + 1
		key := model.BatchItemKey(req.BatchID, index)

		outcome, attempts, err := m.runBatchItem(ctx, key, minter, item, index, maxAttempts, cooldown, emit)
		if err != nil {
			failure := model.BatchItemFailure{
				NFTIndex: index,
				Attempts: attempts,
				Code:     string(apierror.Code(err)),
				Message:  failureMessage(err),
				TxRef:    txRefOf(err),
			}
			result.Failures = append(result.Failures, failure)
			emit(model.BatchEvent{Type: model.EventItemFailed, Index: index, Attempt: attempts, Failure: &failure})
			logrus.Warnf("batch %s halted at item %d after %d attempts: %s", req.BatchID, index, attempts, failure.Code)
			break
		}

		result.Artifacts = append(result.Artifacts, *outcome)
		result.Processed++
		emit(model.BatchEvent{Type: model.EventItemSucceeded, Index: index, Attempt: attempts, Outcome: outcome})
	}

	result.Completed = result.Processed == result.Requested
	if result.Completed {
		emit(model.BatchEvent{Type: model.EventBatchComplete})
	}
	return result, nil
}

func (m *Mintline) runBatchItem(ctx context.Context, key string, minter model.Role, item MintItem, index, maxAttempts int, cooldown time.Duration, emit func(model.BatchEvent)) (*model.SubmissionOutcome, int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		emit(model.BatchEvent{Type: model.EventProgress, Index: index, Attempt: attempt})

		outcome, err := m.MintToken(ctx, key, minter, item.URI, item.Taxon, item.Transferable)
		if err == nil {
			return outcome, attempt, nil
		}
		lastErr = err
		if !retryableInBatch(err) || attempt == maxAttempts {
			return nil, attempt, lastErr
		}

		// Only timing failures earn the long cooldown: the transaction may
		// still land, so waiting is what makes the re-check below meaningful.
		// An engine rejection is definitive and retries immediately.
		if apierror.IsTransient(err) {
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(cooldown):
			}

			// A timed-out submission may have validated during the cooldown.
			// Resubmitting then would mint twice, so the original hash gets
			// the last word before another attempt.
			resolved, rerr := m.resolveLateValidation(ctx, key, txRefOf(err))
			if rerr != nil {
				return nil, attempt, rerr
			}
			if resolved != nil {
				return resolved, attempt, nil
			}
		}
	}
	return nil, maxAttempts, lastErr
}

// resolveLateValidation checks whether a previously timed-out transaction
// made it into a validated ledger. Returns (nil, nil) when its fate is still
// unknown and resubmission is safe to try.
func (m *Mintline) resolveLateValidation(ctx context.Context, key, txRef string) (*model.SubmissionOutcome, error) {
	if txRef == "" {
		return nil, nil
	}
	tx, err := m.ledger.Tx(ctx, txRef)
	if err != nil || !tx.Validated {
		return nil, nil
	}
	if !ledger.IsValidatedSuccess(tx.EngineResult) {
		return nil, apierror.NewTxRefError(apierror.ErrEngineRejected,
			fmt.Sprintf("transaction validated late as a failure: %s", tx.EngineResult), txRef)
	}

	outcome := &model.SubmissionOutcome{
		Status:       model.OutcomeValidated,
		TxHash:       tx.Hash,
		EngineResult: tx.EngineResult,
	}
	if err := attachArtifacts(model.KindMint, tx, outcome); err != nil {
		return nil, err
	}
	if err := m.recordOutcome(ctx, model.KindMint, key, outcome); err != nil {
		return nil, err
	}
	logrus.Infof("transaction %s validated late, skipping resubmission for %s", txRef, key)
	return outcome, nil
}

// retryableInBatch is the batch retry policy: timing failures and engine
// rejections get further attempts, precondition and input failures do not.
func retryableInBatch(err error) bool {
	switch apierror.Code(err) {
	case apierror.ErrValidationTimeout, apierror.ErrEngineRejected:
		return true
	default:
		return false
	}
}

func failureMessage(err error) string {
	if apiErr, ok := err.(apierror.APIError); ok {
		return apiErr.Message
	}
	return err.Error()
}

func txRefOf(err error) string {
	if apiErr, ok := err.(apierror.APIError); ok {
		return apiErr.TxRef
	}
	return ""
}
