// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto at
package init and exposed by the API server at /metrics:

	curl http://localhost:5000/metrics

# Available Metrics

Catalog Metrics:
  - starfield_catalog_query_duration_seconds: Catalog query time (histogram)
    Labels: operation
  - starfield_catalog_query_errors_total: Failed catalog queries (counter)
    Labels: operation

Query Metrics:
  - starfield_query_duration_seconds: End-to-end query time (histogram)
    Labels: kind, source (cache, local, upstream)
  - starfield_query_result_stars: Stars returned per query (histogram)
    Labels: kind

Cache Metrics:
  - starfield_cache_requests_total: Tier lookups (counter)
    Labels: tier (volatile, durable), result (hit, miss, expired, error)
  - starfield_cache_entries: Live entries per tier (gauge)
  - starfield_cache_promotions_total: Durable hits copied to the volatile tier
  - starfield_cache_evictions_total: Removed entries (counter)
    Labels: reason (expired, sweep, clear)
  - starfield_cache_durable_errors_total: Durable tier failures (counter)
    Labels: operation
  - starfield_cache_write_dropped_total: Write-behind jobs dropped on a full queue
  - starfield_cache_sweep_duration_seconds: Sweep time (histogram)

Upstream Metrics:
  - starfield_upstream_attempts_total: Fetch attempts by outcome (counter)
  - starfield_upstream_request_duration_seconds: Per-attempt latency (histogram)
  - starfield_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - starfield_circuit_breaker_transitions_total: State changes (counter)

API Metrics:
  - starfield_api_requests_total, starfield_api_request_duration_seconds,
    starfield_api_active_requests, starfield_api_rate_limit_hits_total
*/
package metrics
