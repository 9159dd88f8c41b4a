package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records every text it is asked to embed.
type countingEmbedder struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (e *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.fail {
		return nil, errors.New("embedder down")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return 2 }

func (e *countingEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func newTestCache(t *testing.T, next Embedder, model string) *CachingEmbedder {
	t.Helper()
	c, err := NewCachingEmbedder(next, model, 100)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewCachingEmbedder_Validation(t *testing.T) {
	_, err := NewCachingEmbedder(nil, "m", 10)
	assert.Error(t, err)

	_, err = NewCachingEmbedder(&countingEmbedder{}, "m", 0)
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
}

func TestCachingEmbedder_EmbedText(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	c := newTestCache(t, inner, "model-a")

	first, err := c.EmbedText(ctx, "hello")
	require.NoError(t, err)
	second, err := c.EmbedText(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second, "cached result must equal uncached result")
	assert.Equal(t, 1, inner.callCount(), "second call should be served from cache")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 2, c.Dimensions())
}

func TestCachingEmbedder_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &countingEmbedder{}, "model-a")

	v, err := c.EmbedText(ctx, "hello")
	require.NoError(t, err)
	v[0] = -1

	again, err := c.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, float32(5), again[0])
}

func TestCachingEmbedder_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{fail: true}
	c := newTestCache(t, inner, "model-a")

	_, err := c.EmbedText(ctx, "hello")
	require.Error(t, err)

	inner.fail = false
	_, err = c.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCachingEmbedder_ModelNamespacing(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	a := newTestCache(t, inner, "model-a")

	_, err := a.EmbedText(ctx, "hello")
	require.NoError(t, err)
	assert.NotEqual(t, a.key("hello"), (&CachingEmbedder{model: "model-b"}).key("hello"))
}

func TestCachingEmbedder_EmbedTexts(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	c := newTestCache(t, inner, "model-a")

	_, err := c.EmbedText(ctx, "bb")
	require.NoError(t, err)

	vectors, err := c.EmbedTexts(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])

	// "bb" was served from cache
	assert.Equal(t, []string{"bb", "a", "ccc"}, inner.calls)

	vectors, err = c.EmbedTexts(ctx, []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, float32(3), vectors[0][0])
	assert.Equal(t, 3, inner.callCount(), "fully cached batch should not reach the embedder")
}
