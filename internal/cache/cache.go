// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/models"
)

const (
	tierVolatile = "volatile"
	tierDurable  = "durable"

	// DefaultDurableTimeout bounds a durable read on the request path.
	DefaultDurableTimeout = 2 * time.Second
)

// Cache is the two-tier query result cache.
//
// Reads check the volatile tier first, then the durable tier; a durable
// hit is promoted into the volatile tier with its original timestamp.
// Writes land in the volatile tier immediately and reach the durable tier
// through a write-behind queue. An entry whose age is at least the TTL is
// expired in both tiers.
//
// Durable tier failures are logged and counted as misses; they never reach
// the caller. Values returned by Get are shared and must not be modified.
type Cache struct {
	enabled        bool
	ttl            time.Duration
	durableTimeout time.Duration

	volatile *volatileTier
	durable  DurableStore
	writer   *writeBehind

	logger zerolog.Logger
	now    func() time.Time

	hits       atomic.Int64
	misses     atomic.Int64
	promotions atomic.Int64
	evictions  atomic.Int64

	sweepMu   sync.Mutex
	lastSweep time.Time

	closeOnce sync.Once
}

// Stats is a snapshot of cache state.
type Stats struct {
	Enabled        bool       `json:"enabled"`
	DurableEnabled bool       `json:"durable_enabled"`
	VolatileCount  int        `json:"volatile_count"`
	DurableCount   int        `json:"durable_count"`
	TTLSeconds     float64    `json:"ttl_seconds"`
	Hits           int64      `json:"hits"`
	Misses         int64      `json:"misses"`
	Promotions     int64      `json:"promotions"`
	Evictions      int64      `json:"evictions"`
	HitRate        float64    `json:"hit_rate"`
	LastSweep      *time.Time `json:"last_sweep,omitempty"`
}

// SweepResult reports what a sweep removed.
type SweepResult struct {
	VolatileRemoved int           `json:"volatile_removed"`
	DurableRemoved  int           `json:"durable_removed"`
	Duration        time.Duration `json:"duration_ns"`
	DurableError    string        `json:"durable_error,omitempty"`
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	VolatileRemoved int    `json:"volatile_removed"`
	DurableRemoved  int    `json:"durable_removed"`
	DurableError    string `json:"durable_error,omitempty"`
}

// New creates a cache from cfg. durable may be nil, in which case only the
// volatile tier is used. When cfg.Enabled is false the cache is a no-op:
// Get always misses and Set discards its value.
func New(cfg *config.CacheConfig, durable DurableStore) *Cache {
	c := &Cache{
		enabled:        cfg.Enabled,
		ttl:            cfg.TTL,
		durableTimeout: cfg.DurableTimeout,
		volatile:       newVolatileTier(cfg.Shards),
		logger:         logging.WithComponent("cache"),
		now:            time.Now,
	}
	if c.durableTimeout <= 0 {
		c.durableTimeout = DefaultDurableTimeout
	}

	if c.enabled && durable != nil {
		c.durable = durable
		c.writer = newWriteBehind(durable, cfg.WriteQueueSize, cfg.WriteWorkers, c.logger)
	}

	c.logger.Info().
		Bool("enabled", c.enabled).
		Bool("durable", c.durable != nil).
		Dur("ttl", c.ttl).
		Int("shards", len(c.volatile.shards)).
		Msg("Query cache initialized")
	return c
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) expired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) >= c.ttl
}

// Get returns the cached stars for key.
func (c *Cache) Get(ctx context.Context, key string) ([]models.Star, bool) {
	if !c.enabled {
		return nil, false
	}
	now := c.now()

	if e, ok := c.volatile.get(key); ok {
		if !c.expired(e.createdAt, now) {
			metrics.RecordCacheLookup(tierVolatile, "hit")
			c.hits.Add(1)
			return e.stars, true
		}
		if c.volatile.deleteIfCreatedAt(key, e.createdAt) {
			c.recordEviction("expired")
		}
		metrics.RecordCacheLookup(tierVolatile, "expired")
	} else {
		metrics.RecordCacheLookup(tierVolatile, "miss")
	}

	if c.durable == nil {
		c.misses.Add(1)
		return nil, false
	}

	stars, createdAt, ok := c.getDurable(ctx, key, now)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.volatile.putIfNewer(key, entry{stars: stars, createdAt: createdAt}) {
		c.promotions.Add(1)
		metrics.CachePromotions.Inc()
	}
	c.hits.Add(1)
	return stars, true
}

// getDurable reads key from the durable tier, bounded by the durable
// timeout. Expired and corrupt records are deleted.
func (c *Cache) getDurable(ctx context.Context, key string, now time.Time) ([]models.Star, time.Time, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()

	rec, found, err := c.readDurable(ctx, key)
	if err != nil {
		metrics.RecordCacheLookup(tierDurable, "error")
		metrics.CacheDurableErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", keyPrefix(key)).Msg("Durable cache read failed, treating as miss")
		return nil, time.Time{}, false
	}
	if !found {
		metrics.RecordCacheLookup(tierDurable, "miss")
		return nil, time.Time{}, false
	}

	if c.expired(rec.CreatedAt, now) {
		metrics.RecordCacheLookup(tierDurable, "expired")
		removed, err := c.durable.DeleteIfCreatedAt(ctx, key, rec.CreatedAt)
		if err != nil {
			metrics.CacheDurableErrors.WithLabelValues("delete").Inc()
			c.logger.Warn().Err(err).Str("key", keyPrefix(key)).Msg("Failed to delete expired durable cache record")
		}
		if removed {
			c.recordEviction("expired")
		}
		return nil, time.Time{}, false
	}

	var stars []models.Star
	if err := json.Unmarshal(rec.Value, &stars); err != nil {
		metrics.RecordCacheLookup(tierDurable, "error")
		metrics.CacheDurableErrors.WithLabelValues("decode").Inc()
		c.logger.Warn().Err(err).Str("key", keyPrefix(key)).Msg("Corrupt durable cache record, discarding")
		c.deleteDurable(ctx, key)
		return nil, time.Time{}, false
	}

	metrics.RecordCacheLookup(tierDurable, "hit")
	return stars, rec.CreatedAt, true
}

// readDurable runs the durable Get so that a stalled store cannot hold the
// caller past ctx's deadline.
func (c *Cache) readDurable(ctx context.Context, key string) (Record, bool, error) {
	type result struct {
		rec   Record
		found bool
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		rec, found, err := c.durable.Get(ctx, key)
		ch <- result{rec: rec, found: found, err: err}
	}()

	select {
	case r := <-ch:
		return r.rec, r.found, r.err
	case <-ctx.Done():
		return Record{}, false, ctx.Err()
	}
}

func (c *Cache) deleteDurable(ctx context.Context, key string) {
	if err := c.durable.Delete(ctx, key); err != nil {
		metrics.CacheDurableErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("key", keyPrefix(key)).Msg("Failed to delete durable cache record")
	}
}

// Set stores stars under key. The volatile tier is updated before Set
// returns; the durable write happens in the background.
func (c *Cache) Set(_ context.Context, key string, stars []models.Star) {
	if !c.enabled {
		return
	}
	createdAt := c.now()
	c.volatile.put(key, entry{stars: stars, createdAt: createdAt})

	if c.writer != nil {
		c.writer.enqueue(writeJob{key: key, stars: stars, createdAt: createdAt})
	}
}

// Sweep removes expired entries from both tiers.
func (c *Cache) Sweep(ctx context.Context) SweepResult {
	start := time.Now()
	var result SweepResult
	if !c.enabled {
		return result
	}

	cutoff := c.now().Add(-c.ttl)
	result.VolatileRemoved = c.volatile.deleteCreatedAtOrBefore(cutoff)

	if c.durable != nil {
		n, err := c.durable.DeleteOlderThan(ctx, cutoff)
		result.DurableRemoved = n
		if err != nil {
			result.DurableError = err.Error()
			metrics.CacheDurableErrors.WithLabelValues("sweep").Inc()
			c.logger.Warn().Err(err).Msg("Durable cache sweep failed")
		}
	}

	removed := result.VolatileRemoved + result.DurableRemoved
	c.evictions.Add(int64(removed))
	metrics.CacheEvictions.WithLabelValues("sweep").Add(float64(removed))

	result.Duration = time.Since(start)
	metrics.CacheSweepDuration.Observe(result.Duration.Seconds())

	c.sweepMu.Lock()
	c.lastSweep = c.now()
	c.sweepMu.Unlock()

	c.logger.Debug().
		Int("volatile_removed", result.VolatileRemoved).
		Int("durable_removed", result.DurableRemoved).
		Dur("duration", result.Duration).
		Msg("Cache sweep complete")
	return result
}

// Clear empties both tiers. Pending durable writes are flushed first so
// they cannot reappear after the clear.
func (c *Cache) Clear(ctx context.Context) ClearResult {
	var result ClearResult
	if c.writer != nil {
		if err := c.writer.flush(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Timed out flushing writes before clear")
		}
	}

	result.VolatileRemoved = c.volatile.clear()
	if c.durable != nil {
		n, err := c.durable.Clear(ctx)
		result.DurableRemoved = n
		if err != nil {
			result.DurableError = err.Error()
			metrics.CacheDurableErrors.WithLabelValues("clear").Inc()
			c.logger.Warn().Err(err).Msg("Failed to clear durable cache")
		}
	}

	removed := result.VolatileRemoved + result.DurableRemoved
	c.evictions.Add(int64(removed))
	metrics.CacheEvictions.WithLabelValues("clear").Add(float64(removed))

	c.logger.Info().
		Int("volatile_removed", result.VolatileRemoved).
		Int("durable_removed", result.DurableRemoved).
		Msg("Cache cleared")
	return result
}

// Stats returns a snapshot of the cache.
func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Enabled:        c.enabled,
		DurableEnabled: c.durable != nil,
		VolatileCount:  c.volatile.count(),
		TTLSeconds:     c.ttl.Seconds(),
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Promotions:     c.promotions.Load(),
		Evictions:      c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100.0
	}

	if c.durable != nil {
		ctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
		defer cancel()
		n, err := c.durable.Count(ctx)
		if err != nil {
			metrics.CacheDurableErrors.WithLabelValues("count").Inc()
			c.logger.Warn().Err(err).Msg("Failed to count durable cache entries")
		}
		s.DurableCount = n
	}

	c.sweepMu.Lock()
	if !c.lastSweep.IsZero() {
		t := c.lastSweep
		s.LastSweep = &t
	}
	c.sweepMu.Unlock()

	metrics.CacheEntries.WithLabelValues(tierVolatile).Set(float64(s.VolatileCount))
	metrics.CacheEntries.WithLabelValues(tierDurable).Set(float64(s.DurableCount))
	return s
}

// Flush waits for pending durable writes to complete.
func (c *Cache) Flush(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.flush(ctx)
}

// Close drains pending writes and closes the durable store.
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.writer != nil {
			c.writer.close()
		}
		if c.durable != nil {
			err = c.durable.Close()
		}
	})
	return err
}

func (c *Cache) recordEviction(reason string) {
	c.evictions.Add(1)
	metrics.CacheEvictions.WithLabelValues(reason).Inc()
}
