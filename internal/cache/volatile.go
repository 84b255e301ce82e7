// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/starfield/internal/models"
)

// DefaultShards is the volatile tier shard count when none is configured.
const DefaultShards = 16

// entry is a cached result and the time it was first computed. Promotion
// from the durable tier keeps createdAt, so an entry never outlives its
// original TTL.
type entry struct {
	stars     []models.Star
	createdAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

// volatileTier is the in-process tier. Keys are spread over shards by
// xxhash; each shard has its own mutex, which serializes operations on a
// single key without a global lock.
type volatileTier struct {
	shards []*shard
}

func newVolatileTier(n int) *volatileTier {
	if n <= 0 {
		n = DefaultShards
	}
	v := &volatileTier{shards: make([]*shard, n)}
	for i := range v.shards {
		v.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return v
}

func (v *volatileTier) shardFor(key string) *shard {
	return v.shards[xxhash.Sum64String(key)%uint64(len(v.shards))]
}

func (v *volatileTier) get(key string) (entry, bool) {
	s := v.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	return e, ok
}

// put overwrites key unconditionally.
func (v *volatileTier) put(key string, e entry) {
	s := v.shardFor(key)
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// putIfNewer stores e unless the shard already holds a newer entry for key.
// It reports whether e was stored.
func (v *volatileTier) putIfNewer(key string, e entry) bool {
	s := v.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur.createdAt.After(e.createdAt) {
		return false
	}
	s.entries[key] = e
	return true
}

// deleteIfCreatedAt removes key only if it still holds the entry created at
// createdAt, so a concurrent Set is never discarded by an expiry check.
func (v *volatileTier) deleteIfCreatedAt(key string, createdAt time.Time) bool {
	s := v.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur.createdAt.Equal(createdAt) {
		delete(s.entries, key)
		return true
	}
	return false
}

// deleteCreatedAtOrBefore removes every entry created at or before cutoff.
func (v *volatileTier) deleteCreatedAtOrBefore(cutoff time.Time) int {
	removed := 0
	for _, s := range v.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if !e.createdAt.After(cutoff) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (v *volatileTier) count() int {
	n := 0
	for _, s := range v.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

func (v *volatileTier) clear() int {
	removed := 0
	for _, s := range v.shards {
		s.mu.Lock()
		removed += len(s.entries)
		s.entries = make(map[string]entry)
		s.mu.Unlock()
	}
	return removed
}
