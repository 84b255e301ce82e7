// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/starfield/internal/middleware"
)

// compressionLevel is the gzip level for JSON responses.
const compressionLevel = 5

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMiddleware uses the defaults.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
	}
}

// requestTimeout returns the per-request deadline, or zero for none.
func (router *Router) requestTimeout() time.Duration {
	if router.handler.config == nil {
		return 0
	}
	return router.handler.config.Server.Timeout
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)        // X-Request-ID header and logging context
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(middleware.AccessLog)        // One log line per request
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(chimiddleware.Compress(compressionLevel, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// ========================
	// Health
	// ========================
	r.With(APISecurityHeaders(), middleware.PrometheusMetrics).Get("/health", router.handler.Health)

	// ========================
	// API v1
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("api"))
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		if timeout := router.requestTimeout(); timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}

		r.Get("/health", router.handler.Health)

		r.Route("/stars", func(r chi.Router) {
			r.Get("/region", router.handler.StarsRegion)
			r.Get("/bright", router.handler.StarsBright)
			r.Get("/bright-catalog", router.handler.StarsBright)
			r.Get("/galactic-center", router.handler.StarsGalacticCenter)
			r.Post("/cone", router.handler.StarsCone)
			r.Post("/frustum", router.handler.StarsFrustum)
			r.Post("/nearby", router.handler.StarsNearby)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", router.handler.CacheStats)
			r.Post("/sweep", router.handler.CacheSweep)
			r.Delete("/", router.handler.CacheClear)
		})
	})

	// Unversioned path kept for clients of the earlier API.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("legacy"))
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Get("/api/stars/bright-catalog", router.handler.StarsBright)
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())

	return r
}
