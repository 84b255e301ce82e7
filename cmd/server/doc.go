// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package main is the entry point for the Starfield server.

Starfield answers spatial queries over a star catalog: sky-region boxes,
cone searches, camera frustums, 3D neighborhoods, and magnitude cuts. Results
come from a local DuckDB catalog, a two-tier result cache, or, for faint
cone searches, the Gaia archive over TAP.

# Application Architecture

The server runs under Suture v4 process supervision:

	RootSupervisor ("starfield")
	├── CacheSupervisor ("cache-layer")
	│   └── Cache sweeper (expired entry reclamation)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (Chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Catalog: DuckDB, optionally snapshotted into an in-memory spatial grid
 4. Cache: sharded in-memory tier plus a BadgerDB durable tier
 5. Upstream: TAP client behind retry, rate limit, and circuit breaker
 6. Supervisor Tree and HTTP Server

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	API_PORT=5000
	REQUEST_TIMEOUT=90s
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Catalog
	CATALOG_PATH=/data/stars.duckdb   # or ":memory:"
	CATALOG_BACKEND=duckdb            # duckdb or memory
	CATALOG_SEED_SAMPLE=false         # synthetic catalog for ":memory:"

	# Cache
	CACHE_ENABLED=true
	CACHE_TTL=1h
	CACHE_DB_PATH=/data/cache

	# Upstream archive
	GAIA_ENABLED=false
	GAIA_TAP_URL=https://gea.esac.esa.int/tap-server/tap

Set CONFIG_PATH to load a YAML config file.

# Signal Handling

The server shuts down gracefully on SIGINT and SIGTERM:
  - Stops accepting new connections
  - Waits for in-flight queries (SHUTDOWN_TIMEOUT)
  - Sweeps the cache and flushes pending durable writes
  - Closes the cache and catalog

# Example Usage

Run against a synthetic in-memory catalog:

	export CATALOG_PATH=:memory:
	export CATALOG_SEED_SAMPLE=true
	export CACHE_DB_PATH=
	./starfield

Then query it:

	curl 'localhost:5000/api/v1/stars/region?ra=180&dec=0&radius=5'
*/
package main
