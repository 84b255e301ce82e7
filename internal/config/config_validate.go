// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Validate checks that configuration values are present and within range.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateQuery(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Backend {
	case BackendDuckDB, BackendMemory:
	default:
		return fmt.Errorf("CATALOG_BACKEND must be one of: %s, %s", BackendDuckDB, BackendMemory)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}
	if c.Catalog.SeedSample && c.Catalog.SeedCount <= 0 {
		return fmt.Errorf("CATALOG_SEED_COUNT must be positive when seeding is enabled")
	}
	if c.Catalog.Backend == BackendMemory && c.Catalog.GridCellSize <= 0 {
		return fmt.Errorf("CATALOG_GRID_CELL_SIZE must be positive for the memory backend")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when caching is enabled")
	}
	if c.Cache.Shards <= 0 {
		return fmt.Errorf("CACHE_SHARDS must be positive")
	}
	if c.Cache.DurableEnabled {
		if c.Cache.WriteQueueSize <= 0 || c.Cache.WriteWorkers <= 0 {
			return fmt.Errorf("CACHE_WRITE_QUEUE_SIZE and CACHE_WRITE_WORKERS must be positive")
		}
		if c.Cache.DurableTimeout <= 0 {
			return fmt.Errorf("CACHE_DURABLE_TIMEOUT must be positive")
		}
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if !c.Upstream.Enabled {
		return nil
	}
	if err := validateServiceURL(c.Upstream.TAPURL); err != nil {
		return fmt.Errorf("GAIA_TAP_URL is invalid: %w", err)
	}
	if c.Upstream.MaxAttempts < 1 {
		return fmt.Errorf("GAIA_MAX_ATTEMPTS must be at least 1")
	}
	if c.Upstream.BaseDelay < 0 || c.Upstream.MaxDelay < c.Upstream.BaseDelay {
		return fmt.Errorf("GAIA_MAX_DELAY must be greater than or equal to GAIA_BASE_DELAY")
	}
	if c.Upstream.Multiplier < 1 {
		return fmt.Errorf("upstream multiplier must be at least 1")
	}
	if c.Upstream.AttemptTimeout <= 0 {
		return fmt.Errorf("GAIA_TIMEOUT must be positive")
	}
	if c.Upstream.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_QUERIES must be at least 1")
	}
	if c.Upstream.MaxRows < 1 {
		return fmt.Errorf("GAIA_MAX_ROWS must be at least 1")
	}
	if c.Upstream.BreakerFailureRatio <= 0 || c.Upstream.BreakerFailureRatio > 1 {
		return fmt.Errorf("upstream breaker failure ratio must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateQuery() error {
	if c.Query.MaxCount < 1 {
		return fmt.Errorf("MAX_STARS_PER_REQUEST must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateServiceURL accepts absolute http(s) URLs. Unlike a plain base URL,
// a service endpoint may carry a path (TAP services live below /tap).
func validateServiceURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("should not contain query parameters, remove: ?%s", parsed.RawQuery)
	}
	return nil
}
