package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://custom:8080/v1"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithAPIToken("secret"),
			WithDimensions(1536),
			WithRequestTimeout(3*time.Second),
			WithRetry(6, time.Second),
			WithRateLimit(2.5, 4),
			WithCacheSize(0),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "secret", cfg.APIToken)
		assert.Equal(t, 1536, cfg.Dimensions)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 6, cfg.MaxAttempts)
		assert.Equal(t, time.Second, cfg.BaseDelay)
		assert.Equal(t, 2.5, cfg.RequestsPerSecond)
		assert.Equal(t, 4, cfg.Burst)
		assert.Equal(t, int64(0), cfg.CacheSize)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, "none", cfg.APIToken)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost is required"},
		{"missing model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel is required"},
		{"negative dimensions", func(c *Config) { c.Dimensions = -1 }, "Dimensions cannot be negative"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "RequestTimeout must be positive"},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, "MaxAttempts must be at least 1"},
		{"negative delay", func(c *Config) { c.BaseDelay = -time.Second }, "BaseDelay cannot be negative"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "RequestsPerSecond cannot be negative"},
		{"rate without burst", func(c *Config) { c.Burst = 0 }, "Burst must be at least 1"},
		{"rate disabled without burst", func(c *Config) { c.RequestsPerSecond = 0; c.Burst = 0 }, ""},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, "CacheSize cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
