// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/starfield/config.yaml",
	"/etc/starfield/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultTAPURL is the Gaia archive TAP service.
const DefaultTAPURL = "https://gea.esac.esa.int/tap-server/tap"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			Host:            "0.0.0.0",
			Timeout:         90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			Path:          "/data/stars.duckdb",
			Backend:       BackendDuckDB,
			MaxMemory:     "1GB",
			Threads:       0,
			LocalMagLimit: 15.0,
			SeedSample:    false,
			SeedCount:     20000,
			GridCellSize:  50.0,
		},
		Cache: CacheConfig{
			Enabled:        true,
			TTL:            time.Hour,
			DurableEnabled: true,
			DurablePath:    "/data/cache",
			SweepInterval:  10 * time.Minute,
			Shards:         16,
			WriteQueueSize: 256,
			WriteWorkers:   2,
			DurableTimeout: 2 * time.Second,
		},
		Upstream: UpstreamConfig{
			Enabled:             false,
			TAPURL:              DefaultTAPURL,
			MaxRows:             100000,
			AttemptTimeout:      60 * time.Second,
			MaxAttempts:         3,
			BaseDelay:           2 * time.Second,
			Multiplier:          2.0,
			MaxDelay:            10 * time.Second,
			MaxConcurrent:       10,
			RatePerSecond:       2.0,
			RateBurst:           4,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      2 * time.Minute,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
		},
		Query: QueryConfig{
			MaxCount:          50000,
			DefaultFaintLimit: 20.0,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "" if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are comma-separated slices in env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unlisted variables are ignored so unrelated process environment never
// leaks into the configuration.
var envMappings = map[string]string{
	// Server
	"api_port":         "server.port",
	"http_port":        "server.port",
	"http_host":        "server.host",
	"request_timeout":  "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Catalog
	"catalog_path":            "catalog.path",
	"duckdb_path":             "catalog.path",
	"catalog_backend":         "catalog.backend",
	"duckdb_max_memory":       "catalog.max_memory",
	"duckdb_threads":          "catalog.threads",
	"catalog_local_mag_limit": "catalog.local_mag_limit",
	"catalog_seed_sample":     "catalog.seed_sample",
	"catalog_seed_count":      "catalog.seed_count",
	"catalog_grid_cell_size":  "catalog.grid_cell_size",

	// Cache
	"cache_enabled":          "cache.enabled",
	"cache_ttl":              "cache.ttl",
	"cache_durable_enabled":  "cache.durable_enabled",
	"cache_db_path":          "cache.durable_path",
	"cache_sweep_interval":   "cache.sweep_interval",
	"cache_shards":           "cache.shards",
	"cache_write_queue_size": "cache.write_queue_size",
	"cache_write_workers":    "cache.write_workers",
	"cache_durable_timeout":  "cache.durable_timeout",

	// Upstream archive
	"gaia_enabled":           "upstream.enabled",
	"gaia_tap_url":           "upstream.tap_url",
	"gaia_max_rows":          "upstream.max_rows",
	"gaia_timeout":           "upstream.attempt_timeout",
	"gaia_max_attempts":      "upstream.max_attempts",
	"gaia_base_delay":        "upstream.base_delay",
	"gaia_max_delay":         "upstream.max_delay",
	"max_concurrent_queries": "upstream.max_concurrent",
	"gaia_rate_per_second":   "upstream.rate_per_second",
	"gaia_rate_burst":        "upstream.rate_burst",

	// Query
	"max_stars_per_request": "query.max_count",
	"default_faint_limit":   "query.default_faint_limit",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CACHE_TTL -> cache.ttl
//   - GAIA_TAP_URL -> upstream.tap_url
//   - API_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
