package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

const (
	// EnvStoreBackend selects the store backend.
	EnvStoreBackend = "KNOWLEDGE_STORE_BACKEND"

	// EnvStoreDimensions overrides the vector dimension.
	EnvStoreDimensions = "KNOWLEDGE_STORE_DIMENSIONS"

	// EnvPostgresDSN overrides the complete PostgreSQL connection string.
	EnvPostgresDSN = "KNOWLEDGE_POSTGRES_DSN"

	// EnvPostgresHost overrides the database host address.
	EnvPostgresHost = "KNOWLEDGE_POSTGRES_HOST"

	// EnvPostgresPort overrides the database port.
	EnvPostgresPort = "KNOWLEDGE_POSTGRES_PORT"

	// EnvPostgresName overrides the database name.
	EnvPostgresName = "KNOWLEDGE_POSTGRES_NAME"

	// EnvPostgresUser overrides the database user.
	EnvPostgresUser = "KNOWLEDGE_POSTGRES_USER"

	// EnvPostgresPassword overrides the database password.
	EnvPostgresPassword = "KNOWLEDGE_POSTGRES_PASSWORD"

	// EnvBadgerPath overrides the badger data directory.
	EnvBadgerPath = "KNOWLEDGE_BADGER_PATH"
)

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	Dimensions int    `toml:"dimensions"`
}

// Finalize applies defaults, loads environment overrides, and validates the store configuration.
func (c *StoreConfig) Finalize() error {
	if c.Backend == "" {
		c.Backend = BackendBadger
	}
	if c.Dimensions == 0 {
		c.Dimensions = 768
	}
	if v := os.Getenv(EnvStoreBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvStoreDimensions); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dimensions = n
		}
	}

	switch c.Backend {
	case BackendBadger, BackendPostgres:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendBadger, BackendPostgres)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("dimensions must be positive")
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *StoreConfig) Merge(overlay *StoreConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
}

// PostgresConfig contains PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN             string `toml:"dsn"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// ConnMaxLifetimeDuration parses and returns the connection max lifetime as a time.Duration.
func (c *PostgresConfig) ConnMaxLifetimeDuration() time.Duration {
	return duration(c.ConnMaxLifetime)
}

// ConnTimeoutDuration parses and returns the connection timeout as a time.Duration.
func (c *PostgresConfig) ConnTimeoutDuration() time.Duration {
	return duration(c.ConnTimeout)
}

// Dsn returns the connection string. An explicit dsn wins over the
// individual fields.
func (c *PostgresConfig) Dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize applies defaults, loads environment overrides, and validates the PostgreSQL configuration.
func (c *PostgresConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *PostgresConfig) Merge(overlay *PostgresConfig) {
	if overlay.DSN != "" {
		c.DSN = overlay.DSN
	}
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.User != "" {
		c.User = overlay.User
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.SSLMode != "" {
		c.SSLMode = overlay.SSLMode
	}
	if overlay.MaxOpenConns != 0 {
		c.MaxOpenConns = overlay.MaxOpenConns
	}
	if overlay.MaxIdleConns != 0 {
		c.MaxIdleConns = overlay.MaxIdleConns
	}
	if overlay.ConnMaxLifetime != "" {
		c.ConnMaxLifetime = overlay.ConnMaxLifetime
	}
	if overlay.ConnTimeout != "" {
		c.ConnTimeout = overlay.ConnTimeout
	}
}

func (c *PostgresConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Name == "" {
		c.Name = "knowledge"
	}
	if c.User == "" {
		c.User = "knowledge"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "15m"
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
}

func (c *PostgresConfig) loadEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.DSN = v
	}
	if v := os.Getenv(EnvPostgresHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvPostgresPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvPostgresName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvPostgresUser); v != "" {
		c.User = v
	}
	if v := os.Getenv(EnvPostgresPassword); v != "" {
		c.Password = v
	}
}

func (c *PostgresConfig) validate() error {
	if c.DSN == "" && c.Name == "" {
		return fmt.Errorf("database name required")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be positive")
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns must be between 0 and max_open_conns")
	}
	if err := parseDuration("conn_max_lifetime", c.ConnMaxLifetime); err != nil {
		return err
	}
	return parseDuration("conn_timeout", c.ConnTimeout)
}

// BadgerConfig contains embedded store configuration.
type BadgerConfig struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// Finalize applies defaults, loads environment overrides, and validates the badger configuration.
func (c *BadgerConfig) Finalize() error {
	if c.Path == "" {
		c.Path = "data/knowledge"
	}
	if v := os.Getenv(EnvBadgerPath); v != "" {
		c.Path = v
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *BadgerConfig) Merge(overlay *BadgerConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.InMemory {
		c.InMemory = true
	}
}
