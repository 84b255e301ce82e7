// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package services provides suture.Service wrappers for Starfield components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, which suture uses to name the service in its events.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server, translating ListenAndServe into Serve
  - Graceful shutdown with a configurable timeout

Cache Sweeper (CacheSweepService):
  - Calls Cache.Sweep on a fixed interval
  - Logs what each sweep removed; durable tier failures log at warn
*/
package services
