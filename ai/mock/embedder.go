package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/core"
)

// DefaultDimensions is the vector size produced by a MockEmbedder unless
// WithDimensions is used.
const DefaultDimensions = 8

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
// Safe for concurrent use as long as the function fields are set before use.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// FailOn, when set, is consulted for every text. A non-nil return fails
	// the whole call with an *core.EmbeddingError wrapping it.
	FailOn func(text string) error

	dims int

	mu        sync.Mutex
	callCount int
	texts     []string
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dims: DefaultDimensions}
}

// WithDimensions sets the length of generated vectors.
func (m *MockEmbedder) WithDimensions(dims int) *MockEmbedder {
	m.dims = dims
	return m
}

// WithEmbedTextFunc overrides EmbedText.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc overrides EmbedTexts.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// WithFailOn installs a per-text failure hook.
func (m *MockEmbedder) WithFailOn(fn func(text string) error) *MockEmbedder {
	m.FailOn = fn
	return m
}

func (m *MockEmbedder) record(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.texts = append(m.texts, texts...)
}

func (m *MockEmbedder) check(texts ...string) error {
	for _, text := range texts {
		if err := core.ValidateText(text); err != nil {
			return core.NewEmbeddingError(err, 0, true)
		}
		if m.FailOn != nil {
			if err := m.FailOn(text); err != nil {
				return core.NewEmbeddingError(err, 1, true)
			}
		}
	}
	return nil
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := m.check(text); err != nil {
		return nil, err
	}
	return Vector(text, m.dims), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := m.check(texts...); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = Vector(text, m.dims)
	}
	return embeddings, nil
}

// Dimensions returns the length of generated vectors.
func (m *MockEmbedder) Dimensions() int {
	return m.dims
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Texts returns every text passed to the embedder, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call count and any injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.texts = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
	m.FailOn = nil
}

// Vector creates a deterministic unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}
	return ai.NormalizeVector(vector)
}
