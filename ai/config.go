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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIToken is sent as the bearer token. Local servers accept any value.
	APIToken string

	// Dimensions is the fixed vector length D produced by the model.
	// Zero disables the check on returned vectors.
	Dimensions int

	// RequestTimeout bounds a single call to the embedding service.
	RequestTimeout time.Duration

	// MaxAttempts is the maximum number of calls made for one request,
	// including the first. Only transient failures are retried.
	MaxAttempts int

	// BaseDelay is the initial backoff delay; it doubles after each attempt.
	BaseDelay time.Duration

	// RequestsPerSecond is the sustained request rate allowed against the
	// embedding service. Zero disables rate limiting.
	RequestsPerSecond float64

	// Burst is the maximum number of requests allowed in a burst.
	Burst int

	// CacheSize is the maximum number of vectors kept by the content-hash
	// cache. Zero disables caching.
	CacheSize int64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIToken sets the API token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithDimensions sets the expected embedding dimension.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithRequestTimeout sets the per-call timeout.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithRetry sets the attempt budget and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.BaseDelay = baseDelay
	}
}

// WithRateLimit sets the sustained request rate and burst size.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithCacheSize sets the maximum number of cached vectors.
func WithCacheSize(size int64) ConfigOption {
	return func(c *Config) {
		c.CacheSize = size
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible embedding service.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:     "http://localhost:11434/v1",
		EmbeddingModel:    "embeddinggemma",
		APIToken:          "none",
		Dimensions:        768,
		RequestTimeout:    10 * time.Second,
		MaxAttempts:       4,
		BaseDelay:         500 * time.Millisecond,
		RequestsPerSecond: 10,
		Burst:             10,
		CacheSize:         10000,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithDimensions(1536),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("ai config: RequestTimeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	if c.BaseDelay < 0 {
		return errors.New("ai config: BaseDelay cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.RequestsPerSecond > 0 && c.Burst < 1 {
		return errors.New("ai config: Burst must be at least 1 when rate limiting")
	}
	if c.CacheSize < 0 {
		return errors.New("ai config: CacheSize cannot be negative")
	}
	return nil
}
