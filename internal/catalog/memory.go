// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/models"
)

// DefaultGridCellSize is the spatial hash cell edge in parsecs.
const DefaultGridCellSize = 50.0

// MemoryStore is an immutable in-process catalog snapshot. Stars are kept
// sorted brightest first, which makes magnitude-ceiling queries a prefix
// slice, and are indexed by a spatial hash grid for distance queries.
type MemoryStore struct {
	stars []models.Star
	grid  *spatialGrid
}

// NewMemoryStore builds a store from stars. The slice is copied.
func NewMemoryStore(stars []models.Star, cellSize float64) *MemoryStore {
	if cellSize <= 0 {
		cellSize = DefaultGridCellSize
	}

	sorted := make([]models.Star, len(stars))
	copy(sorted, stars)
	sortByMagnitude(sorted)

	positions := make([]celestial.Vector3, len(sorted))
	for i := range sorted {
		positions[i] = sorted[i].Position()
	}

	return &MemoryStore{
		stars: sorted,
		grid:  newSpatialGrid(positions, cellSize),
	}
}

// LoadMemoryStore snapshots the full DuckDB catalog into memory.
func LoadMemoryStore(ctx context.Context, db *DB, cellSize float64) (*MemoryStore, error) {
	stars, err := db.AllStars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot catalog: %w", err)
	}
	store := NewMemoryStore(stars, cellSize)
	logger := logging.WithComponent("catalog")
	logger.Info().
		Int("stars", len(stars)).
		Int("cells", len(store.grid.cells)).
		Float64("cell_size_pc", store.grid.cellSize).
		Msg("Loaded in-memory star catalog")
	return store, nil
}

// ByDistanceFrom implements Store.
func (m *MemoryStore) ByDistanceFrom(ctx context.Context, origin celestial.Vector3, maxDistance, faintLimit float64, maxCount int) ([]models.Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []models.Star
	m.grid.candidates(origin, maxDistance, func(idx int32) {
		s := &m.stars[idx]
		if s.Magnitude < faintLimit && s.Position().Distance(origin) < maxDistance {
			result = append(result, *s)
		}
	})

	sortByDistance(result, origin)
	if len(result) > maxCount {
		result = result[:maxCount]
	}
	return result, nil
}

// ByMagnitudeCeiling implements Store.
func (m *MemoryStore) ByMagnitudeCeiling(ctx context.Context, limit float64) ([]models.Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := sort.Search(len(m.stars), func(i int) bool {
		return m.stars[i].Magnitude >= limit
	})
	result := make([]models.Star, n)
	copy(result, m.stars[:n])
	return result, nil
}

// ByAngularBox implements Store.
func (m *MemoryStore) ByAngularBox(ctx context.Context, ra, dec Range) ([]models.Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []models.Star
	for i := range m.stars {
		s := &m.stars[i]
		if dec.Contains(s.Dec) && ra.Contains(s.RA) {
			result = append(result, *s)
		}
	}
	return result, nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	return len(m.stars), nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}
