// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

// Result summarizes a re-embedding run.
type Result struct {
	Total     int                // Documents in the project
	Skipped   int                // Documents left alone because they were processing
	Succeeded int                // Documents re-ingested
	Failed    int                // Documents whose final attempt failed
	Retries   int                // Retry rounds across all batches
	Failures  []core.BatchResult // Final result of every failed document
	Elapsed   time.Duration
}

// Reembedder re-ingests every document of a project through the pipeline.
type Reembedder struct {
	store          storage.DocumentStore
	ingester       Ingester
	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithBatchSize sets the number of documents handed to the pipeline at once.
// Default is 50.
func WithBatchSize(size int) Option {
	return func(r *Reembedder) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}
		r.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMaxRetries sets how often a retryable document failure is retried.
// Default is 3.
func WithMaxRetries(retries int) Option {
	return func(r *Reembedder) error {
		if retries < 0 {
			return ErrInvalidMaxRetries
		}
		r.maxRetries = retries
		return nil
	}
}

// WithRetryDelay sets the base delay for exponential backoff between retries.
// Default is 1s.
func WithRetryDelay(delay time.Duration) Option {
	return func(r *Reembedder) error {
		if delay < 0 {
			return fmt.Errorf("retry delay cannot be negative: %s", delay)
		}
		r.retryDelay = delay
		return nil
	}
}

// WithProgressInterval sets how many documents pass between progress reports.
// Default is the batch size.
func WithProgressInterval(n int) Option {
	return func(r *Reembedder) error {
		if n <= 0 {
			return fmt.Errorf("progress interval must be positive: %d", n)
		}
		r.reportInterval = n
		return nil
	}
}

// NewReembedder creates a new reembedder.
func NewReembedder(store storage.DocumentStore, ingester Ingester, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if ingester == nil {
		return nil, ErrIngesterRequired
	}

	r := &Reembedder{
		store:      store,
		ingester:   ingester,
		batchSize:  DefaultBatchSize,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.reportInterval == 0 {
		r.reportInterval = r.batchSize
	}
	r.logger = r.logger.With("component", "reembed")
	return r, nil
}

// Reembed re-ingests every document of the project that is not currently
// being processed. Per-document failures are counted in the result; the
// returned error is set only when the documents cannot be listed or ctx
// ends, in which case the partial result is still returned.
func (r *Reembedder) Reembed(ctx context.Context, projectID uuid.UUID) (*Result, error) {
	logger := r.logger.With("project_id", projectID)
	iterator := NewDocumentIterator(r.store, r.batchSize)
	processor := NewBatchProcessor(r.ingester, r.maxRetries, r.retryDelay, logger)

	ids, skipped, err := iterator.Plan(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := &Result{
		Total:   len(ids) + len(skipped),
		Skipped: len(skipped),
	}
	if len(skipped) > 0 {
		logger.Warn("skipping documents being processed", "count", len(skipped))
	}
	if len(ids) == 0 {
		logger.Info("no documents to reembed", "total", result.Total)
		return result, nil
	}

	logger.Info("starting reembed", "documents", len(ids), "batch_size", r.batchSize)

	tracker := NewProgressTracker(logger, len(ids), r.reportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, ids, func(batch []uuid.UUID) error {
		results, retries, err := processor.Process(ctx, batch)
		result.Retries += retries

		failed := 0
		for _, res := range results {
			if res.Succeeded() {
				result.Succeeded++
				continue
			}
			failed++
			result.Failures = append(result.Failures, res)
		}
		result.Failed += failed
		tracker.Increment(len(results), failed)
		return err
	})
	result.Elapsed = tracker.Elapsed()
	if err != nil {
		logger.Error("reembed interrupted", "processed", tracker.Processed(), "err", err)
		return result, err
	}

	tracker.Finish()
	logger.Info("reembed complete",
		"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}
