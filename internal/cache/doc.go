// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

/*
Package cache provides the two-tier query result cache.

# Tiers

The volatile tier is an in-process map split into shards. A key's shard is
chosen by xxhash, and each shard is guarded by its own mutex, so concurrent
requests for different keys rarely contend.

The durable tier is a DurableStore, implemented by BadgerStore on BadgerDB.
Records are stored twice:

	qc/e/<key>               -> {"created_at": <unix ns>, "value": <stars JSON>}
	qc/t/<20-digit ns>/<key> -> time index used by DeleteOlderThan

Because the time index sorts oldest first, a sweep walks it from the start
and stops at the first unexpired entry.

# Keys

CanonicalKey hashes a query's rounded parameters, so two requests that
differ only below field precision share an entry:

	key := cache.CanonicalKey(models.Cone{RA: 266.4, Dec: -29, Radius: 5, MaxCount: 1000, FaintLimit: 18})

# Usage

	store, err := cache.OpenBadger(cfg.Cache.DurablePath)
	if err != nil {
	    return err
	}
	c := cache.New(&cfg.Cache, store)
	defer c.Close()

	if stars, ok := c.Get(ctx, key); ok {
	    return stars, nil
	}
	stars, err := engine.Execute(ctx, q)
	if err == nil {
	    c.Set(ctx, key, stars)
	}

# Expiry

An entry expires once its age reaches the TTL. Expired entries are dropped
lazily on read and in bulk by Sweep, which the supervisor runs on an
interval and once more at shutdown.
*/
package cache
