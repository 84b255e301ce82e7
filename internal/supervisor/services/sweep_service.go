// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package services

import (
	"context"
	"time"

	"github.com/tomtom215/starfield/internal/cache"
	"github.com/tomtom215/starfield/internal/logging"
)

// DefaultSweepInterval applies when no sweep interval is configured.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper removes expired cache entries. *cache.Cache implements it.
type Sweeper interface {
	Sweep(ctx context.Context) cache.SweepResult
}

// CacheSweepService sweeps the result cache on a fixed interval.
//
// Expired entries are already invisible to readers; the sweep reclaims
// their memory and durable storage.
type CacheSweepService struct {
	sweeper  Sweeper
	interval time.Duration
	name     string
}

// NewCacheSweepService creates a sweeper that runs every interval.
func NewCacheSweepService(sweeper Sweeper, interval time.Duration) *CacheSweepService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &CacheSweepService{
		sweeper:  sweeper,
		interval: interval,
		name:     "cache-sweeper",
	}
}

// Serve implements suture.Service. It runs until ctx is canceled.
func (s *CacheSweepService) Serve(ctx context.Context) error {
	logger := logging.WithComponent("cache")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result := s.sweeper.Sweep(ctx)
			event := logger.Debug()
			if result.DurableError != "" {
				event = logger.Warn().Str("durable_error", result.DurableError)
			}
			event.
				Int("volatile_removed", result.VolatileRemoved).
				Int("durable_removed", result.DurableRemoved).
				Dur("duration", result.Duration).
				Msg("Cache sweep completed")
		}
	}
}

// String implements fmt.Stringer.
func (s *CacheSweepService) String() string {
	return s.name
}
