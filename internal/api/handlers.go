// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package api

import (
	"time"

	"github.com/tomtom215/starfield/internal/cache"
	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/query"
)

// UpstreamStatus reports the remote archive's circuit breaker state.
// *upstream.Fetcher implements it.
type UpstreamStatus interface {
	BreakerState() string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_stars.go: star query endpoints
//   - handlers_health.go: health and cache administration endpoints
type Handler struct {
	queries   *query.Service
	cache     *cache.Cache
	store     catalog.Store
	upstream  UpstreamStatus
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a new API handler.
//
// Dependencies:
//   - queries: executes star queries through the cache
//   - c: the result cache, for the administration endpoints (may be nil)
//   - store: the local catalog, for health checks (may be nil)
//   - cfg: application configuration
//
// Example:
//
//	handler := api.NewHandler(queries, resultCache, store, cfg)
//	router := api.NewRouter(handler, api.NewChiMiddleware(nil))
//	http.ListenAndServe(":8000", router.SetupChi())
func NewHandler(queries *query.Service, c *cache.Cache, store catalog.Store, cfg *config.Config) *Handler {
	return &Handler{
		queries:   queries,
		cache:     c,
		store:     store,
		config:    cfg,
		startTime: time.Now(),
	}
}

// SetUpstream sets the remote archive whose breaker state the health
// endpoint reports. Leave unset when the archive is disabled.
func (h *Handler) SetUpstream(u UpstreamStatus) {
	h.upstream = u
}

func (h *Handler) maxCount() int {
	if h.config == nil {
		return 0
	}
	return h.config.Query.MaxCount
}

func (h *Handler) defaultFaintLimit() float64 {
	if h.config == nil || h.config.Query.DefaultFaintLimit == 0 {
		return defaultConeMinMagnitude
	}
	return h.config.Query.DefaultFaintLimit
}
