// Package config loads the importer's settings from the environment,
// optionally seeded from a .env file, and validates them before any work
// starts.
package config

import "time"

// Backends selectable through STORE_BACKEND.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all importer configuration.
type Config struct {
	Store   StoreConfig
	Import  ImportConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// StoreConfig selects and configures the remote store client.
type StoreConfig struct {
	// Backend is rest, postgres or sqlite (default: rest)
	Backend string `env:"STORE_BACKEND" default:"rest"`

	// URL is the hosted backend's project URL (required for rest)
	URL string `env:"SUPABASE_URL" envAlt:"VITE_SUPABASE_URL"`

	// Key is the access key sent with every REST request (required for rest)
	Key string `env:"SUPABASE_KEY" envAlt:"VITE_SUPABASE_ANON_KEY"`

	// DatabaseURL is the Postgres connection string (required for postgres)
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns caps the Postgres pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// Migrate creates missing tables on postgres before importing
	Migrate bool `env:"STORE_MIGRATE" default:"false"`

	// SQLitePath is the local database file (default: vocab.db)
	SQLitePath string `env:"SQLITE_PATH" default:"vocab.db"`

	// Timeout bounds each REST request (default: 30s)
	Timeout time.Duration `env:"STORE_TIMEOUT" default:"30s"`
}

// ImportConfig tunes the pipeline.
type ImportConfig struct {
	// BatchSize overrides every profile's batch size when positive
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"0"`

	// Workers loads this many batches at once (default: 1, sequential)
	Workers int `env:"IMPORT_WORKERS" default:"1"`

	// SourcePriority is given to sources created by an import (default: 30)
	SourcePriority int `env:"IMPORT_SOURCE_PRIORITY" default:"30"`

	// CacheDir receives word lists fetched from URLs
	CacheDir string `env:"IMPORT_CACHE_DIR" default:".vocabimport"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"console"`
}

// MetricsConfig enables pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	Job            string `env:"METRICS_JOB" default:"vocabimport"`
}
