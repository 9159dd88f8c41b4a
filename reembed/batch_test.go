package reembed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedIngester fails each document with the scripted errors, in order,
// before letting it succeed.
type scriptedIngester struct {
	mu      sync.Mutex
	script  map[uuid.UUID][]error
	calls   int
	batches [][]uuid.UUID
}

func newScriptedIngester() *scriptedIngester {
	return &scriptedIngester{script: make(map[uuid.UUID][]error)}
}

func (s *scriptedIngester) fail(id uuid.UUID, errs ...error) {
	s.script[id] = append(s.script[id], errs...)
}

func (s *scriptedIngester) ProcessDocumentBatch(ctx context.Context, ids []uuid.UUID) []core.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.batches = append(s.batches, append([]uuid.UUID(nil), ids...))
	results := make([]core.BatchResult, len(ids))
	for i, id := range ids {
		if errs := s.script[id]; len(errs) > 0 {
			s.script[id] = errs[1:]
			results[i] = core.FailedResult(id, errs[0])
			continue
		}
		results[i] = core.SuccessResult(id, 2)
	}
	return results
}

var (
	errTransient = fmt.Errorf("%w: connection reset", core.ErrStoreUnavailable)
	errPermanent = core.NewEmbeddingError(errors.New("model rejected input"), 1, true)
)

func TestBatchProcessor_Process(t *testing.T) {
	ingester := newScriptedIngester()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	processor := NewBatchProcessor(ingester, 3, time.Millisecond, nil)
	results, retries, err := processor.Process(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].Succeeded())
	assert.True(t, results[1].Succeeded())
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, ingester.calls)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	ingester := newScriptedIngester()
	results, retries, err := NewBatchProcessor(ingester, 3, time.Millisecond, nil).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, retries)
	assert.Zero(t, ingester.calls)
}

func TestBatchProcessor_RetriesTransientFailures(t *testing.T) {
	ingester := newScriptedIngester()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	ingester.fail(ids[1], errTransient, errTransient)

	processor := NewBatchProcessor(ingester, 3, time.Millisecond, nil)
	results, retries, err := processor.Process(context.Background(), ids)
	require.NoError(t, err)

	for i, r := range results {
		assert.True(t, r.Succeeded(), "document %d", i)
		assert.Equal(t, ids[i], r.DocumentID)
	}
	assert.Equal(t, 2, retries)
	// Only the failed document is resubmitted
	assert.Equal(t, []uuid.UUID{ids[1]}, ingester.batches[1])
	assert.Equal(t, []uuid.UUID{ids[1]}, ingester.batches[2])
}

func TestBatchProcessor_PermanentFailureNotRetried(t *testing.T) {
	ingester := newScriptedIngester()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	ingester.fail(ids[0], errPermanent)

	processor := NewBatchProcessor(ingester, 3, time.Millisecond, nil)
	results, retries, err := processor.Process(context.Background(), ids)
	require.NoError(t, err)

	assert.False(t, results[0].Succeeded())
	assert.ErrorIs(t, results[0].Err, core.ErrEmbeddingUnavailable)
	assert.True(t, results[1].Succeeded())
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, ingester.calls)
}

func TestBatchProcessor_RetriesExhausted(t *testing.T) {
	ingester := newScriptedIngester()
	id := uuid.New()
	ingester.fail(id, errTransient, errTransient, errTransient, errTransient)

	processor := NewBatchProcessor(ingester, 2, time.Millisecond, nil)
	results, retries, err := processor.Process(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)

	assert.False(t, results[0].Succeeded())
	assert.ErrorIs(t, results[0].Err, core.ErrStoreUnavailable)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, ingester.calls)
}

func TestBatchProcessor_ContextCanceledDuringBackoff(t *testing.T) {
	ingester := newScriptedIngester()
	id := uuid.New()
	ingester.fail(id, errTransient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(ingester, 3, time.Minute, nil)
	results, _, err := processor.Process(ctx, []uuid.UUID{id})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.False(t, results[0].Succeeded())
}
