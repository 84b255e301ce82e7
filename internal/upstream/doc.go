// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package upstream fetches stars from a remote TAP archive (Gaia DR3 by default)
when the local catalog is not deep enough for a query.

# Components

  - TAPClient: sends ADQL cone searches to a TAP /sync endpoint and decodes
    the JSON result. HTTP 429 and 5xx are retryable; other 4xx are Permanent.
  - Retry: generic retry with exponential backoff and a per-attempt deadline.
  - Fetcher: bounds concurrent archive requests with a weighted semaphore,
    paces them with a token bucket, and trips a circuit breaker when the
    archive keeps failing.

# Resilience

With default settings a request is tried 3 times with 2s and 4s pauses, each
attempt limited to 60s. The breaker opens when at least 60% of 10 or more
requests in a minute fail, and probes again after 2 minutes.

Errors returned by Fetcher.Cone wrap ErrUpstreamUnavailable:

	stars, err := fetcher.Cone(ctx, upstream.ConeRequest{RA: 266.4, Dec: -29, Radius: 1, FaintLimit: 18, MaxCount: 5000})
	if errors.Is(err, upstream.ErrUpstreamUnavailable) {
	    // 502 at the HTTP boundary
	}
*/
package upstream
