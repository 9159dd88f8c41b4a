// Package config provides process configuration with support for TOML files,
// environment variable overrides, and configuration overlays.
//
// Configuration is assembled in three steps: the base file is decoded, an
// optional config.<SERVICE_ENV>.toml overlay next to it is merged on top,
// and Finalize applies defaults, KNOWLEDGE_* environment overrides and
// validation to every section.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// BaseConfigFile is the primary configuration file name.
	BaseConfigFile = "config.toml"

	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv specifies the environment name for configuration overlays.
	EnvServiceEnv = "SERVICE_ENV"

	// EnvShutdownTimeout overrides the graceful shutdown timeout.
	EnvShutdownTimeout = "KNOWLEDGE_SHUTDOWN_TIMEOUT"
)

// Config represents the root configuration.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Store           StoreConfig     `toml:"store"`
	Postgres        PostgresConfig  `toml:"postgres"`
	Badger          BadgerConfig    `toml:"badger"`
	Embedding       EmbeddingConfig `toml:"embedding"`
	Chunker         ChunkerConfig   `toml:"chunker"`
	Ingestion       IngestionConfig `toml:"ingestion"`
	Retrieval       RetrievalConfig `toml:"retrieval"`
	Logging         LoggingConfig   `toml:"logging"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
}

// ShutdownTimeoutDuration parses and returns the shutdown timeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads and parses the configuration file at path and applies any
// environment-specific overlay found next to it. An empty path starts from
// an empty configuration, leaving everything to defaults and environment.
// The result still needs Finalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if overlay := overlayPath(path); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Store.Finalize(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Store.Backend == BackendPostgres {
		if err := c.Postgres.Finalize(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if err := c.Badger.Finalize(); err != nil {
		return fmt.Errorf("badger: %w", err)
	}
	if err := c.Embedding.Finalize(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := c.Chunker.Finalize(); err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	if err := c.Ingestion.Finalize(); err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}
	if err := c.Retrieval.Finalize(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	c.Server.Merge(&overlay.Server)
	c.Store.Merge(&overlay.Store)
	c.Postgres.Merge(&overlay.Postgres)
	c.Badger.Merge(&overlay.Badger)
	c.Embedding.Merge(&overlay.Embedding)
	c.Chunker.Merge(&overlay.Chunker)
	c.Ingestion.Merge(&overlay.Ingestion)
	c.Retrieval.Merge(&overlay.Retrieval)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	if env := os.Getenv(EnvServiceEnv); env != "" {
		overlayPath := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(overlayPath); err == nil {
			return overlayPath
		}
	}
	return ""
}

// parseDuration validates a duration field, naming it in the error.
func parseDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return fmt.Errorf("invalid %s: must not be negative", name)
	}
	return nil
}

func duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
