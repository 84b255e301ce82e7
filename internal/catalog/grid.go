// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"math"

	"github.com/tomtom215/starfield/internal/celestial"
)

// cellKey identifies one cube of the spatial hash grid.
type cellKey struct {
	X, Y, Z int
}

// spatialGrid divides Cartesian space into cubes of cellSize parsecs so a
// radius query only visits the cubes overlapping the query sphere instead
// of scanning every star.
//
// The grid is built once and never modified, so it needs no locking.
//
// Time Complexity:
//   - Build: O(n)
//   - Query: O(c + k) where c = cells in the query box and k = stars in them
type spatialGrid struct {
	cellSize float64
	cells    map[cellKey][]int32 // indices into the owning MemoryStore's stars
}

func newSpatialGrid(positions []celestial.Vector3, cellSize float64) *spatialGrid {
	g := &spatialGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int32),
	}
	for i, p := range positions {
		k := g.keyFor(p)
		g.cells[k] = append(g.cells[k], int32(i))
	}
	return g
}

// maxCellCoord bounds cell coordinates so the float to int conversion in
// keyFor stays defined for any finite input.
const maxCellCoord = 1 << 40

func (g *spatialGrid) keyFor(p celestial.Vector3) cellKey {
	return cellKey{
		X: g.cellCoord(p.X),
		Y: g.cellCoord(p.Y),
		Z: g.cellCoord(p.Z),
	}
}

func (g *spatialGrid) cellCoord(v float64) int {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c):
		return 0
	case c > maxCellCoord:
		return maxCellCoord
	case c < -maxCellCoord:
		return -maxCellCoord
	}
	return int(c)
}

// candidates calls fn with the index of every star in a cell that overlaps
// the cube of half-width radius around center.
func (g *spatialGrid) candidates(center celestial.Vector3, radius float64, fn func(idx int32)) {
	// A box wider than the coordinate bound covers every cell.
	if math.IsInf(radius, 0) || math.IsNaN(radius) || radius/g.cellSize >= maxCellCoord {
		for _, idxs := range g.cells {
			for _, idx := range idxs {
				fn(idx)
			}
		}
		return
	}

	lo := g.keyFor(celestial.Vector3{X: center.X - radius, Y: center.Y - radius, Z: center.Z - radius})
	hi := g.keyFor(celestial.Vector3{X: center.X + radius, Y: center.Y + radius, Z: center.Z + radius})

	// Walking the box is wasteful once it spans more cells than exist.
	span := float64(hi.X-lo.X+1) * float64(hi.Y-lo.Y+1) * float64(hi.Z-lo.Z+1)
	if span > float64(len(g.cells)) {
		for k, idxs := range g.cells {
			if k.X < lo.X || k.X > hi.X || k.Y < lo.Y || k.Y > hi.Y || k.Z < lo.Z || k.Z > hi.Z {
				continue
			}
			for _, idx := range idxs {
				fn(idx)
			}
		}
		return
	}

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, idx := range g.cells[cellKey{X: x, Y: y, Z: z}] {
					fn(idx)
				}
			}
		}
	}
}
