package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	// EnvLogLevel overrides the log level.
	EnvLogLevel = "KNOWLEDGE_LOG_LEVEL"

	// EnvLogFormat overrides the log format.
	EnvLogFormat = "KNOWLEDGE_LOG_FORMAT"
)

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Finalize applies defaults, loads environment overrides, and validates the logging configuration.
func (c *LoggingConfig) Finalize() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case FormatText, FormatJSON:
		return nil
	}
	return fmt.Errorf("invalid format %q (want %s or %s)", c.Format, FormatText, FormatJSON)
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

// NewLogger creates a logger writing to w in the configured format.
func (c *LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
}
