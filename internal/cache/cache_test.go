// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/models"
)

const testTTL = time.Hour

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() *config.CacheConfig {
	return &config.CacheConfig{
		Enabled:        true,
		TTL:            testTTL,
		DurableEnabled: true,
		Shards:         4,
		WriteQueueSize: 64,
		WriteWorkers:   2,
		DurableTimeout: time.Second,
	}
}

func newTestCache(t *testing.T, durable DurableStore, clock *fakeClock) *Cache {
	t.Helper()
	c := New(testConfig(), durable)
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleStars(ids ...string) []models.Star {
	stars := make([]models.Star, len(ids))
	for i, id := range ids {
		stars[i] = models.Star{SourceID: id, Magnitude: float64(i)}
	}
	return stars
}

func flush(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

func TestCacheGetSetUntilTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, newTestBadger(t), clock)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() hit on empty cache")
	}

	c.Set(ctx, "k", sampleStars("a", "b"))

	clock.Advance(testTTL - time.Nanosecond)
	for i := 0; i < 3; i++ {
		got, ok := c.Get(ctx, "k")
		if !ok || len(got) != 2 || got[0].SourceID != "a" {
			t.Fatalf("Get() #%d = %v, %v", i, got, ok)
		}
	}

	flush(t, c)
	clock.Advance(time.Nanosecond)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("Get() hit at age == TTL")
	}
}

func TestCachePromotionKeepsTimestamp(t *testing.T) {
	clock := newFakeClock()
	store := newTestBadger(t)
	ctx := context.Background()

	writer := New(testConfig(), store)
	writer.now = clock.Now
	writer.Set(ctx, "k", sampleStars("a"))
	flush(t, writer)

	// A second cache over the same store starts with an empty volatile tier.
	reader := New(testConfig(), store)
	reader.now = clock.Now

	clock.Advance(30 * time.Minute)
	got, ok := reader.Get(ctx, "k")
	if !ok || len(got) != 1 {
		t.Fatalf("Get() = %v, %v, want durable hit", got, ok)
	}
	stats := reader.Stats(ctx)
	if stats.Promotions != 1 || stats.VolatileCount != 1 {
		t.Errorf("promotions = %d, volatile = %d, want 1 and 1", stats.Promotions, stats.VolatileCount)
	}

	// The promoted entry expires on the original schedule, not 1h after promotion.
	clock.Advance(30 * time.Minute)
	if _, ok := reader.Get(ctx, "k"); ok {
		t.Error("promoted entry outlived its original TTL")
	}

	_ = reader.Close()
	_ = writer.Close()
}

func TestCacheExpiredDurableRecordIsDeleted(t *testing.T) {
	clock := newFakeClock()
	store := newTestBadger(t)
	c := newTestCache(t, store, clock)
	ctx := context.Background()

	stale := Record{CreatedAt: epoch.Add(-2 * testTTL), Value: []byte(`[{"source_id":"old"}]`)}
	if err := store.Put(ctx, "k", stale); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() returned an expired durable record")
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("expired durable record was not deleted")
	}
}

func TestCacheCorruptDurableValueIsMiss(t *testing.T) {
	clock := newFakeClock()
	store := newTestBadger(t)
	c := newTestCache(t, store, clock)
	ctx := context.Background()

	if err := store.Put(ctx, "k", Record{CreatedAt: epoch, Value: []byte(`{"not":"a list"}`)}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() hit on an undecodable value")
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("undecodable record was not discarded")
	}
}

func TestCacheSweep(t *testing.T) {
	clock := newFakeClock()
	store := newTestBadger(t)
	c := newTestCache(t, store, clock)
	ctx := context.Background()

	c.Set(ctx, "old-1", sampleStars("a"))
	c.Set(ctx, "old-2", sampleStars("b"))
	flush(t, c)

	clock.Advance(testTTL + time.Second)
	c.Set(ctx, "fresh", sampleStars("c"))
	flush(t, c)

	result := c.Sweep(ctx)
	if result.VolatileRemoved != 2 || result.DurableRemoved != 2 {
		t.Errorf("Sweep() = %+v, want 2 volatile and 2 durable removed", result)
	}
	if result.DurableError != "" {
		t.Errorf("unexpected durable error: %s", result.DurableError)
	}

	stats := c.Stats(ctx)
	if stats.VolatileCount != 1 || stats.DurableCount != 1 {
		t.Errorf("counts after sweep = %d/%d, want 1/1", stats.VolatileCount, stats.DurableCount)
	}
	if stats.LastSweep == nil {
		t.Error("LastSweep not recorded")
	}
	if _, ok := c.Get(ctx, "fresh"); !ok {
		t.Error("fresh entry removed by sweep")
	}
}

func TestCacheClear(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, newTestBadger(t), clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), sampleStars("a"))
	}

	result := c.Clear(ctx)
	if result.VolatileRemoved != 5 || result.DurableRemoved != 5 {
		t.Errorf("Clear() = %+v, want 5/5", result)
	}
	if _, ok := c.Get(ctx, "k0"); ok {
		t.Error("entry survived Clear()")
	}
}

func TestCacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := New(cfg, nil)
	ctx := context.Background()

	c.Set(ctx, "k", sampleStars("a"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("disabled cache returned a hit")
	}

	stats := c.Stats(ctx)
	if stats.Enabled || stats.VolatileCount != 0 {
		t.Errorf("Stats() = %+v, want disabled and empty", stats)
	}
	if result := c.Sweep(ctx); result.VolatileRemoved != 0 {
		t.Errorf("Sweep() on disabled cache = %+v", result)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestCacheVolatileOnly(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, nil, clock)
	ctx := context.Background()

	c.Set(ctx, "k", sampleStars("a"))
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("volatile-only cache missed a fresh entry")
	}
	if err := c.Flush(ctx); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if stats := c.Stats(ctx); stats.DurableEnabled {
		t.Error("DurableEnabled = true without a durable store")
	}
}

// failingStore fails every operation.
type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Put(context.Context, string, Record) error { return errStoreDown }
func (failingStore) Get(context.Context, string) (Record, bool, error) {
	return Record{}, false, errStoreDown
}
func (failingStore) Delete(context.Context, string) error { return errStoreDown }
func (failingStore) DeleteIfCreatedAt(context.Context, string, time.Time) (bool, error) {
	return false, errStoreDown
}
func (failingStore) DeleteOlderThan(context.Context, time.Time) (int, error) {
	return 0, errStoreDown
}
func (failingStore) Count(context.Context) (int, error) { return 0, errStoreDown }
func (failingStore) Clear(context.Context) (int, error) { return 0, errStoreDown }
func (failingStore) Close() error { return nil }

// rewriteOnGet returns the stored record to the caller, then overwrites it
// with a newer one, as a concurrent Set landing between read and delete would.
type rewriteOnGet struct {
	*BadgerStore
	newer Record
}

func (s rewriteOnGet) Get(ctx context.Context, key string) (Record, bool, error) {
	rec, found, err := s.BadgerStore.Get(ctx, key)
	if err != nil || !found {
		return rec, found, err
	}
	if err := s.BadgerStore.Put(ctx, key, s.newer); err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

func TestCacheExpiredDurableKeepsNewerWrite(t *testing.T) {
	clock := newFakeClock()
	store := newTestBadger(t)
	ctx := context.Background()

	if err := store.Put(ctx, "k", Record{CreatedAt: epoch, Value: []byte(`[{"source_id":"old"}]`)}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clock.Advance(2 * testTTL)
	newer := Record{CreatedAt: clock.Now(), Value: []byte(`[{"source_id":"new"}]`)}

	c := newTestCache(t, rewriteOnGet{BadgerStore: store, newer: newer}, clock)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() hit on an expired durable record")
	}

	got, found, err := store.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("newer record was deleted: found %v, err %v", found, err)
	}
	if !got.CreatedAt.Equal(newer.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, newer.CreatedAt)
	}
}

func TestCacheDurableErrorsAreMisses(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, failingStore{}, clock)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("Get() hit with a failing store")
	}

	// Writes still land in the volatile tier.
	c.Set(ctx, "k", sampleStars("a"))
	flush(t, c)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("volatile tier lost a write when the durable tier failed")
	}

	if result := c.Sweep(ctx); result.DurableError == "" {
		t.Error("Sweep() did not report the durable failure")
	}
}

// blockingStore never answers reads until the context ends.
type blockingStore struct {
	failingStore
}

func (blockingStore) Get(ctx context.Context, _ string) (Record, bool, error) {
	<-ctx.Done()
	time.Sleep(time.Second)
	return Record{}, false, ctx.Err()
}

func TestCacheDurableReadTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.DurableTimeout = 20 * time.Millisecond
	c := New(cfg, blockingStore{})
	defer func() { _ = c.Close() }()

	start := time.Now()
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("Get() hit on a blocking store")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Get() took %v, want it bounded by the durable timeout", elapsed)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, newTestBadger(t), clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := fmt.Sprintf("k%d", i%10)
				c.Set(ctx, key, sampleStars(fmt.Sprintf("%d-%d", g, i)))
				c.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()
	flush(t, c)

	if stats := c.Stats(ctx); stats.VolatileCount != 10 || stats.DurableCount != 10 {
		t.Errorf("counts = %d/%d, want 10/10", stats.VolatileCount, stats.DurableCount)
	}
}
