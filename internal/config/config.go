// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
)

// History backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// HistoryBackend selects where completed matches are kept: memory or sqlite.
	HistoryBackend string `koanf:"history_backend"`

	// HistoryPath is the sqlite database file.
	HistoryPath string `koanf:"history_path"`

	// ArchiveQueueSize bounds the queue of completed matches awaiting archive.
	ArchiveQueueSize int `koanf:"archive_queue_size"`

	// ArchiveWorkers is the number of goroutines saving matches to the history.
	ArchiveWorkers int `koanf:"archive_workers"`

	// DedupeSize bounds the remembered ball idempotency keys.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxUndo caps the undo depth kept per match.
	MaxUndo int `koanf:"max_undo"`

	// CORSOrigins lists the origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		HistoryBackend:   BackendMemory,
		HistoryPath:      "cricscore.db",
		ArchiveQueueSize: 64,
		ArchiveWorkers:   2,
		DedupeSize:       10_000,
		MaxUndo:          120,
		CORSOrigins:      []string{"*"},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.HistoryBackend != BackendMemory && c.HistoryBackend != BackendSQLite:
		return fmt.Errorf("history_backend %q: %w", c.HistoryBackend, ErrInvalidConfig)
	case c.HistoryBackend == BackendSQLite && strings.TrimSpace(c.HistoryPath) == "":
		return fmt.Errorf("history_path is required for sqlite: %w", ErrInvalidConfig)
	case c.ArchiveQueueSize <= 0:
		return fmt.Errorf("archive_queue_size must be positive: %w", ErrInvalidConfig)
	case c.ArchiveWorkers <= 0:
		return fmt.Errorf("archive_workers must be positive: %w", ErrInvalidConfig)
	case c.MaxUndo < 0:
		return fmt.Errorf("max_undo must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}
