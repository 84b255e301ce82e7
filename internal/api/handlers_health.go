// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/starfield/internal/cache"
	"github.com/tomtom215/starfield/internal/logging"
)

// healthCheckTimeout bounds the catalog probe in Health.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Catalog       CatalogHealth  `json:"catalog"`
	Cache         *cache.Stats   `json:"cache,omitempty"`
	Upstream      UpstreamHealth `json:"upstream"`
}

// CatalogHealth reports local catalog availability.
type CatalogHealth struct {
	Available bool   `json:"available"`
	StarCount int    `json:"star_count"`
	Error     string `json:"error,omitempty"`
}

// UpstreamHealth reports the remote archive's state.
type UpstreamHealth struct {
	Enabled      bool   `json:"enabled"`
	TAPURL       string `json:"tap_url,omitempty"`
	BreakerState string `json:"breaker_state,omitempty"`
}

// Health handles GET /health.
//
// Status is "healthy" when the local catalog answers, "degraded" otherwise.
// A degraded service still answers queries: cone queries fall back to the
// archive and other queries return empty results.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Catalog:       h.catalogHealth(ctx),
	}
	if !status.Catalog.Available {
		status.Status = "degraded"
	}

	if h.cache != nil {
		stats := h.cache.Stats(ctx)
		status.Cache = &stats
	}

	if h.upstream != nil {
		status.Upstream = UpstreamHealth{
			Enabled:      true,
			BreakerState: h.upstream.BreakerState(),
		}
		if h.config != nil {
			status.Upstream.TAPURL = h.config.Upstream.TAPURL
		}
	}

	NewResponseWriter(w, r).Success(status)
}

func (h *Handler) catalogHealth(ctx context.Context) CatalogHealth {
	if h.store == nil {
		return CatalogHealth{Error: "no catalog configured"}
	}
	if err := h.store.Ping(ctx); err != nil {
		return CatalogHealth{Error: err.Error()}
	}
	count, err := h.store.Count(ctx)
	if err != nil {
		return CatalogHealth{Error: err.Error()}
	}
	return CatalogHealth{Available: true, StarCount: count}
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w, r) {
		return
	}
	WriteSuccess(w, r, h.cache.Stats(r.Context()))
}

// CacheSweep handles POST /api/v1/cache/sweep, removing expired entries
// from both tiers.
func (h *Handler) CacheSweep(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w, r) {
		return
	}
	result := h.cache.Sweep(r.Context())
	logging.Ctx(r.Context()).Info().
		Int("volatile_removed", result.VolatileRemoved).
		Int("durable_removed", result.DurableRemoved).
		Msg("Cache sweep requested")
	NewResponseWriter(w, r).Success(result)
}

// CacheClear handles DELETE /api/v1/cache, removing every entry.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if !h.requireCache(w, r) {
		return
	}
	result := h.cache.Clear(r.Context())
	logging.Ctx(r.Context()).Info().
		Int("volatile_removed", result.VolatileRemoved).
		Int("durable_removed", result.DurableRemoved).
		Msg("Cache cleared")
	NewResponseWriter(w, r).Success(result)
}

func (h *Handler) requireCache(w http.ResponseWriter, r *http.Request) bool {
	if h.cache == nil || !h.cache.Enabled() {
		NewResponseWriter(w, r).ServiceUnavailable("Cache is disabled")
		return false
	}
	return true
}
