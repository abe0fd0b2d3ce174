package model

import "fmt"

// Batch event types streamed to an observer, one per state transition.
const (
	EventProgress      = "progress"
	EventItemSucceeded = "item_succeeded"
	EventItemFailed    = "item_failed"
	EventBatchComplete = "batch_complete"
)

// BatchItemKey derives the idempotency key for one batch item. Indexes are
// 1-based; re-invoking a halted batch with the same id skips completed items
// through these keys.
func BatchItemKey(batchID string, index int) string {
	return fmt.Sprintf("%s-%d", batchID, index)
}

// BatchItemFailure reports the item that halted a batch.
type BatchItemFailure struct {
	NFTIndex int    `json:"nft_index"`
	Attempts int    `json:"attempts"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	TxRef    string `json:"tx_ref,omitempty"`
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	BatchID   string              `json:"batch_id"`
	Requested int                 `json:"requested"`
	Processed int                 `json:"processed"`
	Artifacts []SubmissionOutcome `json:"artifacts"`
	Failures  []BatchItemFailure  `json:"failures"`
	Completed bool                `json:"completed"`
}

// BatchEvent is one observer notification.
type BatchEvent struct {
	Type    string             `json:"type"`
	BatchID string             `json:"batch_id"`
	Index   int                `json:"index,omitempty"`
	Attempt int                `json:"attempt,omitempty"`
	Outcome *SubmissionOutcome `json:"outcome,omitempty"`
	Failure *BatchItemFailure  `json:"failure,omitempty"`
}

// BatchObserver receives progress events. A nil observer is valid and means
// no streaming.
type BatchObserver func(BatchEvent)
