// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package catalog provides read-only access to the local star catalog.
//
// Two backends implement Store: DB queries a DuckDB file directly, and
// MemoryStore serves an in-process snapshot indexed by a 3D spatial hash.
// Both return ErrCatalogUnavailable when the backing data cannot be read;
// callers treat that as an empty result rather than a failure.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/models"
)

// ErrCatalogUnavailable is returned when the catalog backing store is
// missing or unreadable.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Range is a closed interval of degrees. For right ascension a range with
// Min > Max wraps through 0 (e.g. {350, 10}).
type Range struct {
	Min float64
	Max float64
}

// Wraps reports whether the range crosses RA 0.
func (r Range) Wraps() bool {
	return r.Min > r.Max
}

// Contains reports whether v lies in the range, honoring wrap-around.
func (r Range) Contains(v float64) bool {
	if r.Wraps() {
		return v >= r.Min || v <= r.Max
	}
	return v >= r.Min && v <= r.Max
}

// Store is the read-only catalog contract used by the spatial query engine.
// Implementations must be safe for concurrent use.
type Store interface {
	// ByDistanceFrom returns stars closer than maxDistance parsecs to origin
	// and brighter than faintLimit, nearest first (ties: brightest first,
	// then source ID), capped at maxCount.
	ByDistanceFrom(ctx context.Context, origin celestial.Vector3, maxDistance, faintLimit float64, maxCount int) ([]models.Star, error)

	// ByMagnitudeCeiling returns all stars brighter than limit, brightest first.
	ByMagnitudeCeiling(ctx context.Context, limit float64) ([]models.Star, error)

	// ByAngularBox returns stars whose (ra, dec) falls inside the box, in no
	// particular order.
	ByAngularBox(ctx context.Context, ra, dec Range) ([]models.Star, error)

	// Count returns the number of stars in the catalog.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the catalog is readable.
	Ping(ctx context.Context) error
}

// sortByDistance orders stars by distance from origin, then magnitude, then
// source ID.
func sortByDistance(stars []models.Star, origin celestial.Vector3) {
	dist := make(map[string]float64, len(stars))
	for i := range stars {
		dist[stars[i].SourceID] = stars[i].Position().Distance(origin)
	}
	sort.SliceStable(stars, func(i, j int) bool {
		di, dj := dist[stars[i].SourceID], dist[stars[j].SourceID]
		if di != dj {
			return di < dj
		}
		if stars[i].Magnitude != stars[j].Magnitude {
			return stars[i].Magnitude < stars[j].Magnitude
		}
		return stars[i].SourceID < stars[j].SourceID
	})
}

// sortByMagnitude orders stars brightest first, then by source ID.
func sortByMagnitude(stars []models.Star) {
	sort.SliceStable(stars, func(i, j int) bool {
		if stars[i].Magnitude != stars[j].Magnitude {
			return stars[i].Magnitude < stars[j].Magnitude
		}
		return stars[i].SourceID < stars[j].SourceID
	})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrCatalogUnavailable, op, err)
}
