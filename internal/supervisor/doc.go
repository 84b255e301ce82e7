// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package supervisor provides process supervision for Starfield using suture v4.

The supervisor tree organizes long-running services into two layers:

	RootSupervisor ("starfield")
	├── CacheSupervisor ("cache-layer")
	│   └── CacheSweepService (periodic expiry sweep)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing sweeper is restarted without touching the HTTP server, and the
HTTP server keeps serving cached and local results while the sweeper backs
off.

Supervisor events (restarts, backoff, timeouts) are logged through
sutureslog, fed by the zerolog-backed slog adapter from the logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddCacheService(services.NewCacheSweepService(resultCache, cfg.Cache.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}
*/
package supervisor
