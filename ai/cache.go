package ai

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/knowledge/core"
)

// ErrInvalidCacheSize is returned when a cache is created with a non-positive size.
var ErrInvalidCacheSize = errors.New("cache size must be positive")

// CachingEmbedder memoizes embeddings by a hash of the model name and text.
// Identical chunk text shared by several documents is embedded once.
// Errors are never cached.
type CachingEmbedder struct {
	next   Embedder
	model  string
	cache  *ristretto.Cache[uint64, []float32]
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

var _ Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps next with a cache holding up to size vectors.
// model namespaces the cache so vectors from different models never mix.
func NewCachingEmbedder(next Embedder, model string, size int64) (*CachingEmbedder, error) {
	if next == nil {
		return nil, errors.New("embedder required")
	}
	if size < 1 {
		return nil, ErrInvalidCacheSize
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, []float32]{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &CachingEmbedder{
		next:   next,
		model:  model,
		cache:  cache,
		logger: slog.Default().With("component", "embedding-cache"),
	}, nil
}

func (c *CachingEmbedder) key(text string) uint64 {
	return uint64(core.IDFromContent(c.model + "\x00" + text))
}

func (c *CachingEmbedder) store(key uint64, vector []float32) {
	c.cache.Set(key, slices.Clone(vector), 1)
	c.cache.Wait()
}

// EmbedText returns the cached vector for text or delegates to the wrapped embedder.
func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vector, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return slices.Clone(vector), nil
	}
	c.misses.Add(1)

	vector, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(key, vector)
	return vector, nil
}

// EmbedTexts serves cached vectors and embeds only the misses, in one call.
func (c *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	keys := make([]uint64, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		keys[i] = c.key(text)
		if vector, ok := c.cache.Get(keys[i]); ok {
			c.hits.Add(1)
			result[i] = slices.Clone(vector)
			continue
		}
		c.misses.Add(1)
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	c.logger.Debug("embedding cache misses", "misses", len(missTexts), "total", len(texts))
	vectors, err := c.next.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, core.NewEmbeddingError(
			errors.New("embedding result count does not match input count"), 1, true)
	}
	for j, i := range missIdx {
		result[i] = vectors[j]
		c.store(keys[i], vectors[j])
	}
	return result, nil
}

// Dimensions delegates to the wrapped embedder.
func (c *CachingEmbedder) Dimensions() int {
	return c.next.Dimensions()
}

// Stats returns the number of cache hits and misses so far.
func (c *CachingEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the cache.
func (c *CachingEmbedder) Close() {
	c.cache.Close()
}
