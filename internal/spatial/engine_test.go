// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package spatial

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/models"
)

func star(t *testing.T, id string, ra, dec, distance, magnitude float64) models.Star {
	t.Helper()
	s, err := models.NewStar(models.Observation{
		SourceID:   id,
		RA:         ra,
		Dec:        dec,
		Magnitude:  magnitude,
		DistancePC: &distance,
	})
	if err != nil {
		t.Fatalf("NewStar(%s) failed: %v", id, err)
	}
	return s
}

func ids(stars []models.Star) []string {
	out := make([]string, len(stars))
	for i := range stars {
		out[i] = stars[i].SourceID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// galacticCenterCatalog places a handful of stars around (266.4, -29).
func galacticCenterCatalog(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	return catalog.NewMemoryStore([]models.Star{
		star(t, "center", 266.4, -29.0, 8000, 10),
		star(t, "near-faint", 267.0, -28.0, 500, 17),
		star(t, "near-mid", 265.0, -30.0, 300, 12),
		star(t, "too-faint", 266.5, -29.1, 900, 19),
		star(t, "outside-bright", 275.0, -29.0, 50, 2),
		star(t, "tie-far", 266.4, -26.0, 100, 12),
	}, 0)
}

func TestConeGalacticCenter(t *testing.T) {
	engine := NewEngine(galacticCenterCatalog(t))

	got, err := engine.Cone(context.Background(), models.Cone{
		RA: 266.4, Dec: -29.0, Radius: 5, MaxCount: 100, FaintLimit: 18,
	})
	if err != nil {
		t.Fatalf("Cone() error = %v", err)
	}

	// Magnitude first; the two mag-12 stars are ordered by separation.
	want := []string{"center", "near-mid", "tie-far", "near-faint"}
	if !sameIDs(ids(got), want) {
		t.Errorf("Cone() = %v, want %v", ids(got), want)
	}
}

func TestConeCapsAndDeterminism(t *testing.T) {
	engine := NewEngine(galacticCenterCatalog(t))
	q := models.Cone{RA: 266.4, Dec: -29.0, Radius: 5, MaxCount: 2, FaintLimit: 18}

	first, err := engine.Cone(context.Background(), q)
	if err != nil {
		t.Fatalf("Cone() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("len = %d, want 2", len(first))
	}

	for i := 0; i < 5; i++ {
		again, _ := engine.Cone(context.Background(), q)
		if !sameIDs(ids(first), ids(again)) {
			t.Fatalf("run %d returned %v, want %v", i, ids(again), ids(first))
		}
	}
}

func TestConeWrapsRA(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore([]models.Star{
		star(t, "east", 1.0, 0, 10, 5),
		star(t, "west", 359.0, 0, 10, 6),
		star(t, "far", 180.0, 0, 10, 1),
	}, 0))

	got, err := engine.Cone(context.Background(), models.Cone{
		RA: 359.5, Dec: 0, Radius: 3, MaxCount: 10, FaintLimit: 20,
	})
	if err != nil {
		t.Fatalf("Cone() error = %v", err)
	}
	if want := []string{"east", "west"}; !sameIDs(ids(got), want) {
		t.Errorf("Cone() = %v, want %v", ids(got), want)
	}
}

func TestConeAtPole(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore([]models.Star{
		star(t, "pole-a", 10, 88, 10, 4),
		star(t, "pole-b", 190, 88, 10, 3),
		star(t, "equator", 10, 0, 10, 1),
	}, 0))

	got, err := engine.Cone(context.Background(), models.Cone{
		RA: 0, Dec: 90, Radius: 5, MaxCount: 10, FaintLimit: 20,
	})
	if err != nil {
		t.Fatalf("Cone() error = %v", err)
	}
	if want := []string{"pole-b", "pole-a"}; !sameIDs(ids(got), want) {
		t.Errorf("Cone() = %v, want %v", ids(got), want)
	}
}

func TestConeBox(t *testing.T) {
	tests := []struct {
		name         string
		ra, dec, r   float64
		wantRA       catalog.Range
		wantDecRange catalog.Range
	}{
		{
			name: "equator", ra: 180, dec: 0, r: 10,
			wantRA:       catalog.Range{Min: 180 - 10/math.Cos(10*math.Pi/180), Max: 180 + 10/math.Cos(10*math.Pi/180)},
			wantDecRange: catalog.Range{Min: -10, Max: 10},
		},
		{
			name: "reaches north pole", ra: 45, dec: 85, r: 10,
			wantRA:       catalog.Range{Min: 0, Max: 360},
			wantDecRange: catalog.Range{Min: 75, Max: 90},
		},
		{
			name: "reaches south pole", ra: 45, dec: -89, r: 1,
			wantRA:       catalog.Range{Min: 0, Max: 360},
			wantDecRange: catalog.Range{Min: -90, Max: -88},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra, dec := coneBox(tt.ra, tt.dec, tt.r)
			if math.Abs(ra.Min-tt.wantRA.Min) > 1e-9 || math.Abs(ra.Max-tt.wantRA.Max) > 1e-9 {
				t.Errorf("ra range = %+v, want %+v", ra, tt.wantRA)
			}
			if dec != tt.wantDecRange {
				t.Errorf("dec range = %+v, want %+v", dec, tt.wantDecRange)
			}
		})
	}

	ra, _ := coneBox(2, 0, 5)
	if !ra.Wraps() || !ra.Contains(359) || !ra.Contains(6) || ra.Contains(180) {
		t.Errorf("wrapping ra range = %+v", ra)
	}
}

func TestFrustumToCone(t *testing.T) {
	cone, err := FrustumToCone(models.Frustum{
		Direction:   celestial.Vector3{X: 1},
		FOV:         50,
		MaxDistance: 1000,
		MaxCount:    500,
	})
	if err != nil {
		t.Fatalf("FrustumToCone() error = %v", err)
	}

	if cone.RA != 0 || cone.Dec != 0 {
		t.Errorf("center = (%v, %v), want (0, 0)", cone.RA, cone.Dec)
	}
	if cone.Radius != 37.5 {
		t.Errorf("radius = %v, want 37.5", cone.Radius)
	}
	if math.Abs(cone.FaintLimit-16) > 1e-12 {
		t.Errorf("faint limit = %v, want 16", cone.FaintLimit)
	}
	if cone.MaxCount != 500 {
		t.Errorf("max count = %d, want 500", cone.MaxCount)
	}
}

func TestFrustumFaintLimit(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{distance: 100, want: 15},
		{distance: 1000, want: 16},
		{distance: 10, want: 14},
		{distance: 1e9, want: 20},
	}
	for _, tt := range tests {
		if got := FrustumFaintLimit(tt.distance); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("FrustumFaintLimit(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestFrustumZeroDirection(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore(nil, 0))
	_, err := engine.Frustum(context.Background(), models.Frustum{FOV: 30, MaxDistance: 10, MaxCount: 1})
	if !errors.Is(err, models.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestFrustumDelegatesToCone(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore([]models.Star{
		star(t, "ahead", 0, 0, 50, 5),
		star(t, "behind", 180, 0, 50, 1),
	}, 0))

	got, err := engine.Frustum(context.Background(), models.Frustum{
		Direction: celestial.Vector3{X: 2}, FOV: 60, MaxDistance: 1000, MaxCount: 10,
	})
	if err != nil {
		t.Fatalf("Frustum() error = %v", err)
	}
	if want := []string{"ahead"}; !sameIDs(ids(got), want) {
		t.Errorf("Frustum() = %v, want %v", ids(got), want)
	}
}

func TestRegionAndBright(t *testing.T) {
	engine := NewEngine(catalog.NewMemoryStore([]models.Star{
		star(t, "a", 0, 0, 10, 5),
		star(t, "b", 90, 0, 20, 3),
		star(t, "c", 0, 90, 30, 8),
	}, 0))

	region, err := engine.Region(context.Background(), models.Region{MaxDistance: 25, BrightLimit: 10, MaxCount: 10})
	if err != nil {
		t.Fatalf("Region() error = %v", err)
	}
	if want := []string{"a", "b"}; !sameIDs(ids(region), want) {
		t.Errorf("Region() = %v, want %v", ids(region), want)
	}

	bright, err := engine.Bright(context.Background(), models.Bright{MagLimit: 10, MaxCount: 2})
	if err != nil {
		t.Fatalf("Bright() error = %v", err)
	}
	if want := []string{"b", "a"}; !sameIDs(ids(bright), want) {
		t.Errorf("Bright() = %v, want %v", ids(bright), want)
	}
}

func TestExecuteValidatesFirst(t *testing.T) {
	engine := NewEngine(failingStore{})

	tests := []struct {
		name string
		q    models.Query
	}{
		{name: "cone radius", q: models.Cone{RA: 10, Dec: 0, Radius: 0, MaxCount: 1, FaintLimit: 10}},
		{name: "cone count", q: models.Cone{RA: 10, Dec: 0, Radius: 1, MaxCount: 0, FaintLimit: 10}},
		{name: "region distance", q: models.Region{MaxDistance: -1, BrightLimit: 5, MaxCount: 1}},
		{name: "bright count", q: models.Bright{MagLimit: 5, MaxCount: models.MaxResultCount + 1}},
		{name: "nil", q: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Execute(context.Background(), tt.q); !errors.Is(err, models.ErrInvalidQuery) {
				t.Errorf("Execute() error = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestExecutePropagatesUnavailable(t *testing.T) {
	engine := NewEngine(failingStore{})

	queries := []models.Query{
		models.Cone{RA: 10, Dec: 0, Radius: 1, MaxCount: 1, FaintLimit: 10},
		models.Region{MaxDistance: 10, BrightLimit: 5, MaxCount: 1},
		models.Bright{MagLimit: 5, MaxCount: 1},
	}
	for _, q := range queries {
		if _, err := engine.Execute(context.Background(), q); !errors.Is(err, catalog.ErrCatalogUnavailable) {
			t.Errorf("%s: error = %v, want ErrCatalogUnavailable", q.Kind(), err)
		}
	}
}

type failingStore struct{}

func (failingStore) ByDistanceFrom(context.Context, celestial.Vector3, float64, float64, int) ([]models.Star, error) {
	return nil, catalog.ErrCatalogUnavailable
}

func (failingStore) ByMagnitudeCeiling(context.Context, float64) ([]models.Star, error) {
	return nil, catalog.ErrCatalogUnavailable
}

func (failingStore) ByAngularBox(context.Context, catalog.Range, catalog.Range) ([]models.Star, error) {
	return nil, catalog.ErrCatalogUnavailable
}

func (failingStore) Count(context.Context) (int, error) {
	return 0, catalog.ErrCatalogUnavailable
}

func (failingStore) Ping(context.Context) error {
	return catalog.ErrCatalogUnavailable
}
