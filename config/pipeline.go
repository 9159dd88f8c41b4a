package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// EnvIngestionPoolSize overrides the number of documents processed concurrently.
	EnvIngestionPoolSize = "KNOWLEDGE_INGESTION_POOL_SIZE"

	// EnvIngestionDocumentTimeout overrides the per-document deadline.
	EnvIngestionDocumentTimeout = "KNOWLEDGE_INGESTION_DOCUMENT_TIMEOUT"

	// EnvRetrievalQueryTimeout overrides the similarity query timeout.
	EnvRetrievalQueryTimeout = "KNOWLEDGE_RETRIEVAL_QUERY_TIMEOUT"
)

// IngestionConfig contains ingestion pipeline configuration.
type IngestionConfig struct {
	PoolSize           int    `toml:"pool_size"`
	DocumentTimeout    string `toml:"document_timeout"`
	EmbedBatchSize     int    `toml:"embed_batch_size"`
	StoreRetryAttempts int    `toml:"store_retry_attempts"`
	StoreRetryDelay    string `toml:"store_retry_delay"`
}

// DocumentTimeoutDuration parses and returns the document timeout as a time.Duration.
func (c *IngestionConfig) DocumentTimeoutDuration() time.Duration {
	return duration(c.DocumentTimeout)
}

// StoreRetryDelayDuration parses and returns the store retry delay as a time.Duration.
func (c *IngestionConfig) StoreRetryDelayDuration() time.Duration {
	return duration(c.StoreRetryDelay)
}

// Finalize applies defaults, loads environment overrides, and validates the ingestion configuration.
func (c *IngestionConfig) Finalize() error {
	if c.PoolSize == 0 {
		c.PoolSize = 4
	}
	if c.DocumentTimeout == "" {
		c.DocumentTimeout = "5m"
	}
	if c.EmbedBatchSize == 0 {
		c.EmbedBatchSize = 32
	}
	if c.StoreRetryAttempts == 0 {
		c.StoreRetryAttempts = 3
	}
	if c.StoreRetryDelay == "" {
		c.StoreRetryDelay = "100ms"
	}

	if v := os.Getenv(EnvIngestionPoolSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PoolSize = n
		}
	}
	if v := os.Getenv(EnvIngestionDocumentTimeout); v != "" {
		c.DocumentTimeout = v
	}

	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be positive")
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("embed_batch_size must be positive")
	}
	if c.StoreRetryAttempts < 1 {
		return fmt.Errorf("store_retry_attempts must be positive")
	}
	if err := parseDuration("document_timeout", c.DocumentTimeout); err != nil {
		return err
	}
	return parseDuration("store_retry_delay", c.StoreRetryDelay)
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *IngestionConfig) Merge(overlay *IngestionConfig) {
	if overlay.PoolSize != 0 {
		c.PoolSize = overlay.PoolSize
	}
	if overlay.DocumentTimeout != "" {
		c.DocumentTimeout = overlay.DocumentTimeout
	}
	if overlay.EmbedBatchSize != 0 {
		c.EmbedBatchSize = overlay.EmbedBatchSize
	}
	if overlay.StoreRetryAttempts != 0 {
		c.StoreRetryAttempts = overlay.StoreRetryAttempts
	}
	if overlay.StoreRetryDelay != "" {
		c.StoreRetryDelay = overlay.StoreRetryDelay
	}
}

// RetrievalConfig contains retrieval configuration.
type RetrievalConfig struct {
	DefaultK     int    `toml:"default_k"`
	MaxK         int    `toml:"max_k"`
	QueryTimeout string `toml:"query_timeout"`
}

// QueryTimeoutDuration parses and returns the query timeout as a time.Duration.
func (c *RetrievalConfig) QueryTimeoutDuration() time.Duration {
	return duration(c.QueryTimeout)
}

// Finalize applies defaults, loads environment overrides, and validates the retrieval configuration.
func (c *RetrievalConfig) Finalize() error {
	if c.DefaultK == 0 {
		c.DefaultK = 5
	}
	if c.MaxK == 0 {
		c.MaxK = 50
	}
	if c.QueryTimeout == "" {
		c.QueryTimeout = "2s"
	}
	if v := os.Getenv(EnvRetrievalQueryTimeout); v != "" {
		c.QueryTimeout = v
	}

	if c.DefaultK < 1 || c.MaxK < 1 {
		return fmt.Errorf("default_k and max_k must be positive")
	}
	if c.DefaultK > c.MaxK {
		return fmt.Errorf("default_k (%d) exceeds max_k (%d)", c.DefaultK, c.MaxK)
	}
	return parseDuration("query_timeout", c.QueryTimeout)
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *RetrievalConfig) Merge(overlay *RetrievalConfig) {
	if overlay.DefaultK != 0 {
		c.DefaultK = overlay.DefaultK
	}
	if overlay.MaxK != 0 {
		c.MaxK = overlay.MaxK
	}
	if overlay.QueryTimeout != "" {
		c.QueryTimeout = overlay.QueryTimeout
	}
}
