// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package api provides the HTTP REST API layer for Starfield.

Key Components:

  - Router: chi route configuration and middleware stack
  - Handler: request handlers for star queries, health and cache administration
  - ResponseWriter: the JSON envelope shared by every endpoint
  - ChiMiddleware: CORS (go-chi/cors) and rate limiting (go-chi/httprate)

Endpoints:

	GET    /health                           health (alias of /api/v1/health)
	GET    /api/v1/stars/region              cone around ra/dec, default faint limit
	GET    /api/v1/stars/bright              full-sky bright stars
	GET    /api/v1/stars/galactic-center     cone around Sagittarius A*
	POST   /api/v1/stars/cone                cone search
	POST   /api/v1/stars/frustum             camera frustum
	POST   /api/v1/stars/nearby              nearest stars to a point
	GET    /api/v1/cache/stats               cache statistics
	POST   /api/v1/cache/sweep               remove expired entries
	DELETE /api/v1/cache                     remove every entry
	GET    /metrics                          Prometheus metrics

Response Format:

Every response uses the same envelope:

	{
	    "success": true,
	    "data": {"count": 2, "stars": [...], "cached": false, "query_time_ms": 1.7},
	    "meta": {"request_id": "...", "timestamp": "...", "source": "local"}
	}

Errors set success to false and carry a machine-readable code:

	400 VALIDATION_FAILED     request parameters failed validation
	400 INVALID_INPUT         unparseable parameters or an invalid query
	502 UPSTREAM_UNAVAILABLE  the remote archive failed after retries
	503 REQUEST_CANCELED      the request deadline expired
	500 INTERNAL_ERROR        anything else

An unavailable local catalog is not an error: the query returns an empty
result with source "none".
*/
package api
