package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeEmbeddingServer speaks the /v1/embeddings wire format.
// Each request consumes the next scripted status; once the script runs out
// every request succeeds.
type fakeEmbeddingServer struct {
	mu       sync.Mutex
	statuses []int
	dims     int
	delay    time.Duration
	calls    int
	inputs   [][]string
}

func (f *fakeEmbeddingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.inputs = append(f.inputs, payload.Input)
	status := http.StatusOK
	if idx < len(f.statuses) {
		status = f.statuses[idx]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":"scripted failure %d","type":"test"}}`, status)
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, len(payload.Input))
	for i, text := range payload.Input {
		vec := make([]float32, f.dims)
		for j := range vec {
			vec[j] = float32(len(text) + j)
		}
		data[i] = item{Object: "embedding", Embedding: vec, Index: i}
	}
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  payload.Model,
	})
}

func (f *fakeEmbeddingServer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestEmbedder(t *testing.T, fake *fakeEmbeddingServer, opts ...ai.ConfigOption) *Embedder {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	base := []ai.ConfigOption{
		ai.WithEmbeddingHost(srv.URL),
		ai.WithEmbeddingModel("test-model"),
		ai.WithAPIToken("test-token"),
		ai.WithDimensions(4),
		ai.WithRequestTimeout(2 * time.Second),
		ai.WithRetry(3, time.Millisecond),
		ai.WithRateLimit(0, 0),
	}
	e, err := newEmbedder(ai.NewConfig(append(base, opts...)...))
	require.NoError(t, err)
	return e
}

func requireEmbeddingError(t *testing.T, err error) *core.EmbeddingError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
	var embErr *core.EmbeddingError
	require.True(t, errors.As(err, &embErr), "expected *core.EmbeddingError, got %T", err)
	return embErr
}

func TestNewEmbedder(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		e, err := NewEmbedder(ai.DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, 768, e.Dimensions())
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		e, err := NewEmbedder(nil)
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingModel("")))
		assert.Error(t, err)
	})
}

func TestEmbedder_EmbedText(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4}
	e := newTestEmbedder(t, fake)

	vec, err := e.EmbedText(context.Background(), "hello\nworld")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 1, fake.callCount())
	assert.Equal(t, []string{"hello world"}, fake.inputs[0], "newlines should be stripped")
}

func TestEmbedder_RejectsEmptyInput(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4}
	e := newTestEmbedder(t, fake)

	for _, text := range []string{"", "   "} {
		_, err := e.EmbedText(context.Background(), text)
		embErr := requireEmbeddingError(t, err)
		assert.ErrorIs(t, err, core.ErrEmptyInput)
		assert.True(t, embErr.Permanent)
		assert.Equal(t, 0, embErr.Attempts)
	}

	_, err := e.EmbedTexts(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, core.ErrEmptyInput)

	assert.Equal(t, 0, fake.callCount(), "empty input must not reach the service")
}

func TestEmbedder_RetriesTransientFailures(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4, statuses: []int{429, 503}}
	e := newTestEmbedder(t, fake)

	vec, err := e.EmbedText(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, fake.callCount())
}

func TestEmbedder_PermanentFailureSurfacesImmediately(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			fake := &fakeEmbeddingServer{dims: 4, statuses: []int{status, status, status}}
			e := newTestEmbedder(t, fake)

			_, err := e.EmbedText(context.Background(), "nope")
			embErr := requireEmbeddingError(t, err)
			assert.True(t, embErr.Permanent)
			assert.Equal(t, 1, embErr.Attempts)
			assert.Equal(t, 1, fake.callCount())
		})
	}
}

func TestEmbedder_ExhaustsRetries(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4, statuses: []int{503, 502, 500, 200}}
	e := newTestEmbedder(t, fake)

	_, err := e.EmbedText(context.Background(), "down")
	embErr := requireEmbeddingError(t, err)
	assert.False(t, embErr.Permanent)
	assert.Equal(t, 3, embErr.Attempts)
	assert.Contains(t, embErr.Err.Error(), "500", "last underlying error should be kept")
	assert.Equal(t, 3, fake.callCount())
}

func TestEmbedder_PerCallTimeoutIsTransient(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4, delay: 500 * time.Millisecond}
	e := newTestEmbedder(t, fake, ai.WithRequestTimeout(20*time.Millisecond), ai.WithRetry(2, time.Millisecond))

	_, err := e.EmbedText(context.Background(), "slow")
	embErr := requireEmbeddingError(t, err)
	assert.False(t, embErr.Permanent)
	assert.Equal(t, 2, embErr.Attempts)
}

func TestEmbedder_CanceledContext(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4}
	e := newTestEmbedder(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedText(ctx, "never sent")
	requireEmbeddingError(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fake.callCount())
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 3}
	e := newTestEmbedder(t, fake)

	_, err := e.EmbedText(context.Background(), "drift")
	embErr := requireEmbeddingError(t, err)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.True(t, embErr.Permanent)
	assert.Equal(t, 1, fake.callCount())
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4}
	e := newTestEmbedder(t, fake)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])
	assert.Equal(t, float32(2), vectors[2][0])

	empty, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbedder_RateLimited(t *testing.T) {
	fake := &fakeEmbeddingServer{dims: 4}
	e := newTestEmbedder(t, fake, ai.WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := e.EmbedText(context.Background(), "tick")
		require.NoError(t, err)
	}
	// burst of 1 at 20 rps: the second and third calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ai.Classification
	}{
		{"rate limited", errors.New("API returned unexpected status code: 429: slow down"), ai.Transient},
		{"server error", errors.New("API returned unexpected status code: 500"), ai.Transient},
		{"bad gateway", errors.New("API returned unexpected status code: 502: upstream"), ai.Transient},
		{"request timeout status", errors.New("API returned unexpected status code: 408"), ai.Transient},
		{"unauthorized", errors.New("API returned unexpected status code: 401: invalid api key"), ai.Permanent},
		{"bad request", errors.New("API returned unexpected status code: 400: bad input"), ai.Permanent},
		{"client timeout", errors.New("request timeout: API call exceeded deadline"), ai.Transient},
		{"network", errors.New("network error: failed to reach API server"), ai.Transient},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ai.Transient},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ai.Canceled},
		{"dimension drift", fmt.Errorf("%w: 3 != 4", core.ErrDimensionMismatch), ai.Permanent},
		{"count mismatch", errCountMismatch, ai.Permanent},
		{"quota", errors.New("You exceeded your current quota exceeded, check billing"), ai.Permanent},
		{"unknown", errors.New("something odd happened"), ai.Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestClassifyCode(t *testing.T) {
	transient := []llms.ErrorCode{llms.ErrCodeRateLimit, llms.ErrCodeTimeout, llms.ErrCodeProviderUnavailable, llms.ErrCodeUnknown}
	permanent := []llms.ErrorCode{llms.ErrCodeAuthentication, llms.ErrCodeInvalidRequest, llms.ErrCodeQuotaExceeded,
		llms.ErrCodeTokenLimit, llms.ErrCodeContentFilter, llms.ErrCodeResourceNotFound, llms.ErrCodeNotImplemented}

	for _, code := range transient {
		assert.Equal(t, ai.Transient, classifyCode(code), code)
	}
	for _, code := range permanent {
		assert.Equal(t, ai.Permanent, classifyCode(code), code)
	}
	assert.Equal(t, ai.Canceled, classifyCode(llms.ErrCodeCanceled))
}

func TestClassifier_StopsWhenCallerIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ai.Canceled, classifier(ctx)(errors.New("API returned unexpected status code: 503")))
}
