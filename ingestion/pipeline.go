package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/chunker"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

const (
	// DefaultEmbedBatchSize is the number of chunks sent per embedding call.
	DefaultEmbedBatchSize = 32

	// statusTimeout bounds the failure write made after a document's own
	// deadline has passed.
	statusTimeout = 5 * time.Second
)

// Pipeline orchestrates document ingestion.
// It is safe for concurrent use; each document runs its own strictly
// sequential chunk, embed and persist sequence.
type Pipeline struct {
	store           storage.Store
	embedder        ai.Embedder
	chunker         *chunker.Chunker
	pool            *ants.Pool
	proc            processor
	documentTimeout time.Duration
	embedBatchSize  int
	storeAttempts   int
	storeDelay      time.Duration
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of documents processed concurrently by
// ProcessDocumentBatch. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunker sets the chunker used to split document content.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return ErrChunkerRequired
		}
		p.chunker = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithDocumentTimeout bounds the processing of a single document.
// Zero disables the bound.
func WithDocumentTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout < 0 {
			return fmt.Errorf("document timeout cannot be negative: %s", timeout)
		}
		p.documentTimeout = timeout
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are sent per embedding call.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("embed batch size must be positive: %d", size)
		}
		p.embedBatchSize = size
		return nil
	}
}

// WithStoreRetry sets how often transient store failures are retried.
// Default is 3 attempts starting at 100ms.
func WithStoreRetry(attempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			attempts = 1
		}
		p.storeAttempts = attempts
		p.storeDelay = delay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	defaultChunker, err := chunker.New()
	if err != nil {
		return nil, err
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:          store,
		embedder:       embedder,
		chunker:        defaultChunker,
		pool:           pool,
		embedBatchSize: DefaultEmbedBatchSize,
		storeAttempts:  3,
		storeDelay:     100 * time.Millisecond,
		logger:         slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.logger = p.logger.With("component", "ingestion")
	// Create the processor after options are applied so it gets the final config
	p.proc = newChunkProcessor(p)
	return p, nil
}

// ProcessDocument ingests one document and reports the outcome.
// It never returns an error or panics; failures are recorded in the result
// and, once the document has been claimed, in the document's status.
//
// A complete document is re-ingested: its chunks are replaced only if the
// new run succeeds.
func (p *Pipeline) ProcessDocument(ctx context.Context, id uuid.UUID) core.BatchResult {
	return p.run(ctx, id, false)
}

// Reingest forces a new ingestion run. Unlike ProcessDocument it also takes
// over a document left in processing by an interrupted run, failing that
// stale run first. Callers must ensure no other run is still active.
func (p *Pipeline) Reingest(ctx context.Context, id uuid.UUID) core.BatchResult {
	return p.run(ctx, id, true)
}

func (p *Pipeline) run(ctx context.Context, id uuid.UUID, force bool) (result core.BatchResult) {
	start := time.Now()
	logger := p.logger.With("document_id", id)

	if p.documentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.documentTimeout)
		defer cancel()
	}

	claimed := false
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanic, r)
			logger.Error("panic while processing document", "panic", r)
			if claimed {
				p.markFailed(ctx, logger, id, err)
			}
			result = core.FailedResult(id, err)
		}
	}()

	doc, err := p.load(ctx, id)
	if err != nil {
		logger.Warn("failed to load document", "err", err)
		return core.FailedResult(id, err)
	}

	if force && doc.Status == core.StatusProcessing {
		logger.Warn("taking over stale processing run")
		if err := p.setStatus(ctx, id, core.StatusFailed, "superseded by re-ingestion"); err != nil {
			logger.Error("failed to reset stale document", "err", err)
			return core.FailedResult(id, err)
		}
	}

	// The claim fails when another run owns the document. That run's status
	// must not be touched.
	if err := p.setStatus(ctx, id, core.StatusProcessing, ""); err != nil {
		logger.Warn("failed to claim document", "status", doc.Status, "err", err)
		return core.FailedResult(id, err)
	}
	claimed = true

	count, err := p.proc.process(ctx, doc)
	if err != nil {
		logger.Error("document ingestion failed", "err", err)
		p.markFailed(ctx, logger, id, err)
		return core.FailedResult(id, err)
	}

	if err := p.setStatus(ctx, id, core.StatusComplete, ""); err != nil {
		logger.Error("failed to mark document complete", "err", err)
		p.markFailed(ctx, logger, id, err)
		return core.FailedResult(id, err)
	}

	logger.Info("document ingested", "chunks", count, "content_version", doc.ContentVersion(), "elapsed", time.Since(start))
	return core.SuccessResult(id, count)
}

// ProcessDocumentBatch ingests documents concurrently on the worker pool and
// returns one result per id, in input order. A repeated id is processed once
// and its result reported at every position.
func (p *Pipeline) ProcessDocumentBatch(ctx context.Context, ids []uuid.UUID) []core.BatchResult {
	results := make([]core.BatchResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	first := make(map[uuid.UUID]int, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		if _, seen := first[id]; seen {
			continue
		}
		first[id] = i

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			results[i] = p.ProcessDocument(ctx, id)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("failed to schedule document", "document_id", id, "err", err)
			results[i] = core.FailedResult(id, fmt.Errorf("schedule document: %w", err))
		}
	}
	wg.Wait()

	for i, id := range ids {
		if j := first[id]; j != i {
			results[i] = results[j]
		}
	}

	failed := 0
	for _, r := range results {
		if !r.Succeeded() {
			failed++
		}
	}
	p.logger.Info("batch processed", "documents", len(ids), "failed", failed)
	return results
}

func (p *Pipeline) load(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	var doc *core.Document
	err := storage.WithRetry(ctx, p.storeAttempts, p.storeDelay, func() error {
		var getErr error
		doc, getErr = p.store.GetDocument(ctx, id)
		return getErr
	})
	return doc, err
}

func (p *Pipeline) setStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus, reason string) error {
	return storage.WithRetry(ctx, p.storeAttempts, p.storeDelay, func() error {
		return p.store.UpdateStatus(ctx, id, status, reason)
	})
}

// markFailed records cause as the document's failure reason. It still runs
// when ctx is already done so an expired deadline does not strand the
// document in processing.
func (p *Pipeline) markFailed(ctx context.Context, logger *slog.Logger, id uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusTimeout)
	defer cancel()

	if err := p.setStatus(ctx, id, core.StatusFailed, failureReason(cause)); err != nil {
		logger.Error("failed to mark document failed", "err", err)
	}
}

// failureReason is the human-readable reason stored with a failed document.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "processing deadline exceeded: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "processing canceled: " + err.Error()
	}
	return err.Error()
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
