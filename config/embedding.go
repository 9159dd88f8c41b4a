package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/chunker"
)

const (
	// EnvEmbeddingHost overrides the embedding service URL.
	EnvEmbeddingHost = "KNOWLEDGE_EMBEDDING_HOST"

	// EnvEmbeddingModel overrides the embedding model.
	EnvEmbeddingModel = "KNOWLEDGE_EMBEDDING_MODEL"

	// EnvEmbeddingAPIToken overrides the embedding service API token.
	EnvEmbeddingAPIToken = "KNOWLEDGE_EMBEDDING_API_TOKEN"

	// EnvEmbeddingRequestTimeout overrides the per-call timeout.
	EnvEmbeddingRequestTimeout = "KNOWLEDGE_EMBEDDING_REQUEST_TIMEOUT"

	// EnvEmbeddingRequestsPerSecond overrides the client-side rate limit.
	EnvEmbeddingRequestsPerSecond = "KNOWLEDGE_EMBEDDING_REQUESTS_PER_SECOND"
)

// EmbeddingConfig contains embedding service configuration.
// The vector dimension is taken from the store section.
type EmbeddingConfig struct {
	Host              string  `toml:"host"`
	Model             string  `toml:"model"`
	APIToken          string  `toml:"api_token"`
	RequestTimeout    string  `toml:"request_timeout"`
	MaxAttempts       int     `toml:"max_attempts"`
	BaseDelay         string  `toml:"base_delay"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	DisableRateLimit  bool    `toml:"disable_rate_limit"`
	CacheSize         int64   `toml:"cache_size"`
	DisableCache      bool    `toml:"disable_cache"`
}

// AIConfig converts the section into an ai.Config producing dims-length vectors.
func (c *EmbeddingConfig) AIConfig(dims int) *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.Host),
		ai.WithEmbeddingModel(c.Model),
		ai.WithAPIToken(c.APIToken),
		ai.WithDimensions(dims),
		ai.WithRequestTimeout(duration(c.RequestTimeout)),
		ai.WithRetry(c.MaxAttempts, duration(c.BaseDelay)),
		ai.WithRateLimit(c.RequestsPerSecond, c.Burst),
		ai.WithCacheSize(c.CacheSize),
	)
	if c.DisableRateLimit {
		cfg.RequestsPerSecond = 0
	}
	if c.DisableCache {
		cfg.CacheSize = 0
	}
	return cfg
}

// Finalize applies defaults, loads environment overrides, and validates the embedding configuration.
func (c *EmbeddingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *EmbeddingConfig) Merge(overlay *EmbeddingConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.APIToken != "" {
		c.APIToken = overlay.APIToken
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseDelay != "" {
		c.BaseDelay = overlay.BaseDelay
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.DisableRateLimit {
		c.DisableRateLimit = true
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
	if overlay.DisableCache {
		c.DisableCache = true
	}
}

func (c *EmbeddingConfig) loadDefaults() {
	def := ai.DefaultConfig()
	if c.Host == "" {
		c.Host = def.EmbeddingHost
	}
	if c.Model == "" {
		c.Model = def.EmbeddingModel
	}
	if c.APIToken == "" {
		c.APIToken = def.APIToken
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = def.RequestTimeout.String()
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay == "" {
		c.BaseDelay = def.BaseDelay.String()
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.Burst == 0 {
		c.Burst = def.Burst
	}
	if c.CacheSize == 0 {
		c.CacheSize = def.CacheSize
	}
}

func (c *EmbeddingConfig) loadEnv() {
	if v := os.Getenv(EnvEmbeddingHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvEmbeddingAPIToken); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv(EnvEmbeddingRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvEmbeddingRequestsPerSecond); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = rps
		}
	}
}

func (c *EmbeddingConfig) validate() error {
	if err := parseDuration("request_timeout", c.RequestTimeout); err != nil {
		return err
	}
	if err := parseDuration("base_delay", c.BaseDelay); err != nil {
		return err
	}
	// dimensions are checked by the store section
	return c.AIConfig(1).Validate()
}

// ChunkerConfig contains chunking configuration, in characters.
type ChunkerConfig struct {
	MaxSize int `toml:"max_size"`
	Overlap int `toml:"overlap"`
}

// Chunker builds a chunker from the section.
func (c *ChunkerConfig) Chunker() (*chunker.Chunker, error) {
	return chunker.New(chunker.WithMaxSize(c.MaxSize), chunker.WithOverlap(c.Overlap))
}

// Finalize applies defaults and validates the chunker configuration.
func (c *ChunkerConfig) Finalize() error {
	if c.MaxSize == 0 {
		c.MaxSize = chunker.DefaultMaxSize
	}
	if c.Overlap == 0 {
		c.Overlap = chunker.DefaultOverlap
	}
	if _, err := c.Chunker(); err != nil {
		return err
	}
	if c.Overlap >= c.MaxSize {
		return fmt.Errorf("overlap (%d) must be smaller than max_size (%d)", c.Overlap, c.MaxSize)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ChunkerConfig) Merge(overlay *ChunkerConfig) {
	if overlay.MaxSize != 0 {
		c.MaxSize = overlay.MaxSize
	}
	if overlay.Overlap != 0 {
		c.Overlap = overlay.Overlap
	}
}
