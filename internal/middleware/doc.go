// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package middleware provides HTTP middleware shared by every route.

Key Components:

  - RequestID: request and correlation IDs for structured logging
  - PrometheusMetrics: request count, latency, and in-flight gauge
  - AccessLog: one zerolog line per request

All middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics labels requests by chi route pattern, so it must run
inside a chi router for the endpoint label to be meaningful. Requests that
match no route are labelled "unmatched".
*/
package middleware
