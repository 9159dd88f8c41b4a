package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/storage"
)

const (
	// DefaultLimit is the number of chunks returned when k is zero.
	DefaultLimit = 5

	// DefaultMaxLimit caps k so a single query cannot pull a whole corpus
	// onto the chat path.
	DefaultMaxLimit = 50
)

// Searcher retrieves the chunks most similar to a query within a project.
type Searcher struct {
	store         storage.VectorStore
	embedder      ai.Embedder
	defaultLimit  int
	maxLimit      int
	queryTimeout  time.Duration
	storeAttempts int
	storeDelay    time.Duration
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultLimit sets the number of results returned when k is zero.
func WithDefaultLimit(limit int) Option {
	return func(s *Searcher) error {
		if err := core.ValidateLimit(limit); err != nil {
			return err
		}
		s.defaultLimit = limit
		return nil
	}
}

// WithMaxLimit caps the number of results a single retrieval may request.
func WithMaxLimit(limit int) Option {
	return func(s *Searcher) error {
		if err := core.ValidateLimit(limit); err != nil {
			return err
		}
		s.maxLimit = limit
		return nil
	}
}

// WithQueryTimeout bounds the similarity query against the store.
// Zero disables the bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout < 0 {
			return fmt.Errorf("query timeout cannot be negative: %s", timeout)
		}
		s.queryTimeout = timeout
		return nil
	}
}

// WithStoreRetry sets how often transient store failures are retried.
func WithStoreRetry(attempts int, delay time.Duration) Option {
	return func(s *Searcher) error {
		if attempts < 1 {
			attempts = 1
		}
		s.storeAttempts = attempts
		s.storeDelay = delay
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:         store,
		embedder:      embedder,
		defaultLimit:  DefaultLimit,
		maxLimit:      DefaultMaxLimit,
		queryTimeout:  2 * time.Second,
		storeAttempts: 2,
		storeDelay:    50 * time.Millisecond,
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// Retrieve returns up to k chunks of the project most similar to query,
// most similar first. k of zero selects the default limit; a negative k
// fails with core.ErrInvalidLimit. A k above the maximum limit (DefaultMaxLimit
// unless WithMaxLimit says otherwise) is clamped to it rather than rejected.
// A project without chunks yields an empty slice and no error.
func (s *Searcher) Retrieve(ctx context.Context, projectID uuid.UUID, query string, k int) ([]core.RetrievedChunk, error) {
	return s.RetrieveWithMonitor(ctx, projectID, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with a monitor receiving callbacks at each
// stage of the retrieval.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, projectID uuid.UUID, query string, k int, monitor RetrievalMonitor) (results []core.RetrievedChunk, err error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(projectID, query, k)
	defer func() {
		monitor.Finish(results, err)
	}()

	limit, err := s.limit(k)
	if err != nil {
		return nil, err
	}

	query = normalizeQuery(query)
	if query == "" {
		return nil, core.ErrEmptyInput
	}

	// 1. Embed the query
	start := time.Now()
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "project_id", projectID, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding), time.Since(start))

	// 2. Rank the project's chunks
	start = time.Now()
	matches, err := s.search(ctx, projectID, embedding, limit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "project_id", projectID, "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches, time.Since(start))

	results = make([]core.RetrievedChunk, len(matches))
	for i, match := range matches {
		results[i] = core.RetrievedChunk{
			ChunkText:  match.Chunk.Text,
			DocumentID: match.Chunk.DocumentID,
			ChunkIndex: match.Chunk.Index,
			Similarity: match.Similarity,
		}
	}

	s.logger.Debug("retrieval complete", "project_id", projectID, "k", limit, "results", len(results))
	return results, nil
}

func (s *Searcher) limit(k int) (int, error) {
	switch {
	case k == 0:
		return s.defaultLimit, nil
	case k < 0:
		return 0, core.ValidateLimit(k)
	case k > s.maxLimit:
		return s.maxLimit, nil
	}
	return k, nil
}

func (s *Searcher) search(ctx context.Context, projectID uuid.UUID, embedding []float32, limit int) ([]core.ScoredChunk, error) {
	parent := ctx
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	var matches []core.ScoredChunk
	err := storage.WithRetry(ctx, s.storeAttempts, s.storeDelay, func() error {
		var searchErr error
		matches, searchErr = s.store.SimilaritySearch(ctx, projectID, embedding, limit)
		return searchErr
	})
	if err != nil {
		// the query's own deadline is a store failure, not a caller cancellation
		if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			return nil, fmt.Errorf("%w: similarity query timed out after %s: %w", core.ErrStoreUnavailable, s.queryTimeout, err)
		}
		return nil, err
	}
	if matches == nil {
		matches = []core.ScoredChunk{}
	}
	return matches, nil
}
