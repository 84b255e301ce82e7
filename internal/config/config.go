// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package config loads Starfield configuration from defaults, an optional
// YAML file, and environment variables (in increasing priority).
package config

import (
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every setting
//  2. Config File: optional YAML file (config.yaml, or CONFIG_PATH)
//  3. Environment Variables: override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	store, err := catalog.New(&cfg.Catalog)
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Cache    CacheConfig    `koanf:"cache"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Query    QueryConfig    `koanf:"query"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"` // Overall request deadline
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Catalog backends.
const (
	BackendDuckDB = "duckdb"
	BackendMemory = "memory"
)

// CatalogConfig holds local star catalog settings.
type CatalogConfig struct {
	Path      string `koanf:"path"` // DuckDB file, or ":memory:"
	Backend   string `koanf:"backend"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU

	// LocalMagLimit is the faintest magnitude the local catalog is complete
	// to. Cone and frustum queries that reach fainter go upstream when the
	// upstream archive is enabled.
	LocalMagLimit float64 `koanf:"local_mag_limit"`

	SeedSample   bool    `koanf:"seed_sample"` // Generate a synthetic catalog (":memory:" only)
	SeedCount    int     `koanf:"seed_count"`
	GridCellSize float64 `koanf:"grid_cell_size"` // Spatial hash cell edge in parsecs (memory backend)
}

// CacheConfig holds query result cache settings.
type CacheConfig struct {
	Enabled        bool          `koanf:"enabled"`
	TTL            time.Duration `koanf:"ttl"`
	DurableEnabled bool          `koanf:"durable_enabled"`
	DurablePath    string        `koanf:"durable_path"` // Empty = in-memory badger
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	Shards         int           `koanf:"shards"`
	WriteQueueSize int           `koanf:"write_queue_size"`
	WriteWorkers   int           `koanf:"write_workers"`
	DurableTimeout time.Duration `koanf:"durable_timeout"`
}

// UpstreamConfig holds remote archive (TAP service) settings.
type UpstreamConfig struct {
	Enabled bool   `koanf:"enabled"`
	TAPURL  string `koanf:"tap_url"`
	MaxRows int    `koanf:"max_rows"`

	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
	MaxAttempts    int           `koanf:"max_attempts"`
	BaseDelay      time.Duration `koanf:"base_delay"`
	Multiplier     float64       `koanf:"multiplier"`
	MaxDelay       time.Duration `koanf:"max_delay"`

	MaxConcurrent int     `koanf:"max_concurrent"`
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`

	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
}

// QueryConfig holds request-level query limits.
type QueryConfig struct {
	MaxCount          int     `koanf:"max_count"`
	DefaultFaintLimit float64 `koanf:"default_faint_limit"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration using Koanf. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
