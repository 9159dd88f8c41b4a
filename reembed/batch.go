package reembed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
)

// Ingester runs ingestion for a batch of stored documents.
type Ingester interface {
	ProcessDocumentBatch(ctx context.Context, ids []uuid.UUID) []core.BatchResult
}

// BatchProcessor ingests one batch of documents and retries the documents
// whose failure is retryable.
type BatchProcessor struct {
	ingester       Ingester
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of extra attempts for retryable failures
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(ingester Ingester, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		ingester:       ingester,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process ingests ids and returns the final result for each, in input
// order, along with the number of retry attempts made. Only failures for
// which core.IsRetryable holds are retried; permanent failures are reported
// as they are. A context error is returned only when ctx ends between
// attempts; the results gathered so far are still returned.
func (bp *BatchProcessor) Process(ctx context.Context, ids []uuid.UUID) ([]core.BatchResult, int, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}

	results := bp.ingester.ProcessDocumentBatch(ctx, ids)
	retries := 0

	for attempt := 1; attempt <= bp.maxRetries; attempt++ {
		var pending []int
		for i, r := range results {
			if !r.Succeeded() && core.IsRetryable(r.Err) {
				pending = append(pending, i)
			}
		}
		if len(pending) == 0 {
			break
		}

		delay := backoff(bp.retryBaseDelay, attempt)
		bp.logger.Debug("retrying failed documents", "count", len(pending), "attempt", attempt, "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return results, retries, err
		}

		retryIDs := make([]uuid.UUID, len(pending))
		for j, i := range pending {
			retryIDs[j] = ids[i]
		}
		retried := bp.ingester.ProcessDocumentBatch(ctx, retryIDs)
		for j, i := range pending {
			results[i] = retried[j]
		}
		retries++
	}

	return results, retries, nil
}
