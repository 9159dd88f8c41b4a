package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// errCountMismatch is returned when the service returns a different number
// of vectors than texts were sent.
var errCountMismatch = errors.New("embedding result count does not match input count")

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// Every call is rate limited, bounded by a per-call timeout and retried
// with exponential backoff on transient failures.
type Embedder struct {
	embedder embeddings.Embedder
	limiter  *rate.Limiter
	config   ai.Config
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}

	return &Embedder{
		embedder: embedder,
		limiter:  limiter,
		config:   *config,
		logger: slog.Default().With("component", "openai-embedder",
			"model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimensions returns the configured embedding dimension.
func (e *Embedder) Dimensions() int {
	return e.config.Dimensions
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := core.ValidateText(text); err != nil {
		return nil, core.NewEmbeddingError(err, 0, true)
	}

	e.logger.Debug("generating embedding for single text", "length", len(text))
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for i, text := range texts {
		if err := core.ValidateText(text); err != nil {
			return nil, core.NewEmbeddingError(fmt.Errorf("text %d: %w", i, err), 0, true)
		}
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	return e.embed(ctx, texts)
}

// embed performs the request with rate limiting, timeout and retries.
func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	classify := classifier(ctx)

	var vectors [][]float32
	attempts, err := ai.RetryClassified(ctx, func() error {
		var err error
		vectors, err = e.attempt(ctx, texts)
		return err
	}, classify, e.config.MaxAttempts, e.config.BaseDelay)

	if err != nil {
		permanent := classify(err) != ai.Transient
		e.logger.Error("failed to generate embeddings", "count", len(texts),
			"attempts", attempts, "permanent", permanent, "err", err)
		return nil, core.NewEmbeddingError(err, attempts, permanent)
	}
	return vectors, nil
}

// attempt makes a single call to the embedding service.
func (e *Embedder) attempt(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	defer cancel()

	vectors, err := e.embedder.EmbedDocuments(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, received %d", errCountMismatch, len(texts), len(vectors))
	}
	if e.config.Dimensions > 0 {
		for i, v := range vectors {
			if len(v) != e.config.Dimensions {
				return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
					core.ErrDimensionMismatch, i, len(v), e.config.Dimensions)
			}
		}
	}
	return vectors, nil
}
