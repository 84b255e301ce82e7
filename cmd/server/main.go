// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/starfield/internal/api"
	"github.com/tomtom215/starfield/internal/cache"
	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/query"
	"github.com/tomtom215/starfield/internal/spatial"
	"github.com/tomtom215/starfield/internal/supervisor"
	"github.com/tomtom215/starfield/internal/supervisor/services"
	"github.com/tomtom215/starfield/internal/upstream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	readHeaderTimeout = 10 * time.Second
	finalFlushTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; use the defaults for this one message.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Int("port", cfg.Server.Port).
		Str("catalog", cfg.Catalog.Path).
		Str("backend", cfg.Catalog.Backend).
		Msg("Starting Starfield")

	db, store, err := initCatalog(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize star catalog")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close star catalog")
		}
	}()

	resultCache, err := initCache(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize result cache")
	}
	defer shutdownCache(resultCache)

	fetcher := initUpstream(cfg)

	// A nil *upstream.Fetcher must not reach the service as a non-nil
	// interface value.
	var coneFetcher query.ConeFetcher
	if fetcher != nil {
		coneFetcher = fetcher
	}
	queries := query.NewService(spatial.NewEngine(store), resultCache, coneFetcher, cfg.Catalog.LocalMagLimit)

	handler := api.NewHandler(queries, resultCache, store, cfg)
	if fetcher != nil {
		handler.SetUpstream(fetcher)
	}
	chiMw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, chiMw)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if resultCache.Enabled() {
		tree.AddCacheService(services.NewCacheSweepService(resultCache, cfg.Cache.SweepInterval))
		logging.Info().Dur("interval", cfg.Cache.SweepInterval).Msg("Cache sweeper added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// initCatalog opens the DuckDB catalog and, for the memory backend, loads a
// snapshot of it into the spatial grid. A missing catalog is not fatal:
// local queries report it and the health endpoint shows the service degraded.
func initCatalog(cfg *config.Config) (*catalog.DB, catalog.Store, error) {
	db, err := catalog.New(&cfg.Catalog)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Catalog.Backend != config.BackendMemory {
		return db, db, nil
	}

	if !db.Available() {
		logging.Warn().Msg("Memory backend requested but catalog is unavailable, serving from DuckDB")
		return db, db, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	mem, err := catalog.LoadMemoryStore(ctx, db, cfg.Catalog.GridCellSize)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, mem, nil
}

// initCache builds the two-tier result cache. The durable tier is optional;
// when it cannot be opened the cache runs volatile-only.
func initCache(cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		logging.Info().Msg("Result cache disabled (CACHE_ENABLED=false)")
		return cache.New(&cfg.Cache, nil), nil
	}

	var durable cache.DurableStore
	if cfg.Cache.DurableEnabled {
		if cfg.Cache.DurablePath != "" {
			if err := os.MkdirAll(cfg.Cache.DurablePath, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		store, err := cache.OpenBadger(cfg.Cache.DurablePath)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Cache.DurablePath).Msg("Durable cache unavailable, continuing with in-memory tier only")
		} else {
			durable = store
		}
	}

	return cache.New(&cfg.Cache, durable), nil
}

// shutdownCache sweeps expired entries, drains pending durable writes and
// closes both tiers.
func shutdownCache(c *cache.Cache) {
	if !c.Enabled() {
		_ = c.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()

	result := c.Sweep(ctx)
	logging.Info().
		Int("volatile_removed", result.VolatileRemoved).
		Int("durable_removed", result.DurableRemoved).
		Msg("Final cache sweep completed")

	if err := c.Flush(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to flush pending cache writes")
	}
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close result cache")
	}
}

// initUpstream returns the archive fetcher, or nil when upstream fetching is
// disabled.
func initUpstream(cfg *config.Config) *upstream.Fetcher {
	if !cfg.Upstream.Enabled {
		logging.Info().Msg("Upstream archive disabled (GAIA_ENABLED=false)")
		return nil
	}

	client := upstream.NewTAPClient(&cfg.Upstream, nil)
	fetcher := upstream.NewFetcher(&cfg.Upstream, client)
	logging.Info().
		Str("tap_url", cfg.Upstream.TAPURL).
		Int("max_attempts", cfg.Upstream.MaxAttempts).
		Int("max_concurrent", cfg.Upstream.MaxConcurrent).
		Msg("Upstream archive fetcher initialized")
	return fetcher
}
