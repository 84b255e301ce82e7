// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/config"
)

func TestNewMissingCatalogIsUnavailable(t *testing.T) {
	db, err := New(&config.CatalogConfig{
		Path:      filepath.Join(t.TempDir(), "missing.duckdb"),
		MaxMemory: "256MB",
	})
	if err != nil {
		t.Fatalf("New() should not fail for a missing file, got %v", err)
	}
	defer func() { _ = db.Close() }()

	if db.Available() {
		t.Error("Available() = true for a missing catalog")
	}

	ctx := t.Context()
	if _, err := db.ByDistanceFrom(ctx, celestial.Vector3{}, 10, 20, 10); !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("ByDistanceFrom() error = %v, want ErrCatalogUnavailable", err)
	}
	if _, err := db.ByMagnitudeCeiling(ctx, 5); !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("ByMagnitudeCeiling() error = %v, want ErrCatalogUnavailable", err)
	}
	if _, err := db.Count(ctx); !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("Count() error = %v, want ErrCatalogUnavailable", err)
	}
	if err := db.Ping(ctx); !errors.Is(err, ErrCatalogUnavailable) {
		t.Errorf("Ping() error = %v, want ErrCatalogUnavailable", err)
	}
}

func TestDBByDistanceFrom(t *testing.T) {
	db := newMemoryDB(t, fixtureStars(t))

	got, err := db.ByDistanceFrom(t.Context(), celestial.Vector3{}, 100, 20, 3)
	if err != nil {
		t.Fatalf("ByDistanceFrom() error = %v", err)
	}
	want := []string{"a", "e", "b"}
	if !equalIDs(ids(got), want) {
		t.Errorf("ByDistanceFrom() = %v, want %v", ids(got), want)
	}
}

func TestDBRoundTripsNullableColumns(t *testing.T) {
	stars := fixtureStars(t)
	bpRp := 1.2
	parallax := 100.0
	stars[0].ColorBPRP = &bpRp
	stars[0].Parallax = &parallax
	db := newMemoryDB(t, stars)

	got, err := db.ByMagnitudeCeiling(t.Context(), 99)
	if err != nil {
		t.Fatalf("ByMagnitudeCeiling() error = %v", err)
	}
	byID := map[string]int{}
	for i := range got {
		byID[got[i].SourceID] = i
	}

	a := got[byID["a"]]
	if a.ColorBPRP == nil || *a.ColorBPRP != bpRp {
		t.Errorf("bp_rp = %v, want %v", a.ColorBPRP, bpRp)
	}
	if a.Parallax == nil || *a.Parallax != parallax {
		t.Errorf("parallax = %v, want %v", a.Parallax, parallax)
	}
	if b := got[byID["b"]]; b.ColorBPRP != nil || b.PMRA != nil {
		t.Errorf("expected nil optional columns for b, got bp_rp=%v pmra=%v", b.ColorBPRP, b.PMRA)
	}
}

func TestDBByAngularBox(t *testing.T) {
	db := newMemoryDB(t, fixtureStars(t))

	tests := []struct {
		name string
		ra   Range
		dec  Range
		want []string
	}{
		{name: "plain box", ra: Range{80, 100}, dec: Range{-5, 5}, want: []string{"b"}},
		{name: "wrapping box", ra: Range{350, 10}, dec: Range{-5, 5}, want: []string{"a", "d", "e"}},
		{name: "pole cap", ra: Range{0, 360}, dec: Range{80, 90}, want: []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ByAngularBox(t.Context(), tt.ra, tt.dec)
			if err != nil {
				t.Fatalf("ByAngularBox() error = %v", err)
			}
			gotIDs := ids(got)
			sort.Strings(gotIDs)
			if !equalIDs(gotIDs, tt.want) {
				t.Errorf("ByAngularBox() = %v, want %v", gotIDs, tt.want)
			}
		})
	}
}

func TestSeedSample(t *testing.T) {
	db, err := New(&config.CatalogConfig{
		Path:       memoryPath,
		MaxMemory:  "256MB",
		Threads:    1,
		SeedSample: true,
		SeedCount:  1200,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	n, err := db.Count(t.Context())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1200 {
		t.Errorf("Count() = %d, want 1200", n)
	}
}

func TestGenerateSampleDeterministic(t *testing.T) {
	first, err := GenerateSample(200, 99)
	if err != nil {
		t.Fatalf("GenerateSample() error = %v", err)
	}
	second, _ := GenerateSample(200, 99)
	other, _ := GenerateSample(200, 100)

	for i := range first {
		if first[i].RA != second[i].RA || first[i].Magnitude != second[i].Magnitude {
			t.Fatalf("star %d differs between runs with the same seed", i)
		}
	}
	if first[0].RA == other[0].RA && first[0].Dec == other[0].Dec {
		t.Error("different seeds produced the same first star")
	}

	for i := range first {
		s := &first[i]
		if s.RA < 0 || s.RA >= 360 || s.Dec < -90 || s.Dec > 90 {
			t.Errorf("star %s out of range: ra=%v dec=%v", s.SourceID, s.RA, s.Dec)
		}
		if s.DistancePC < 1 || s.DistancePC > seedMaxDistance+1e-9 {
			t.Errorf("star %s distance %v out of range", s.SourceID, s.DistancePC)
		}
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.duckdb")

	if err := WriteSample(t.Context(), path, 300, 7); err != nil {
		t.Fatalf("WriteSample() error = %v", err)
	}
	if err := WriteSample(t.Context(), path, 300, 7); err == nil {
		t.Error("WriteSample() over an existing file should fail")
	}
	if err := WriteSample(t.Context(), memoryPath, 10, 7); err == nil {
		t.Error("WriteSample(:memory:) should fail")
	}

	db, err := New(&config.CatalogConfig{Path: path, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	if !db.Available() {
		t.Fatal("written catalog is not available")
	}
	n, err := db.Count(t.Context())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 300 {
		t.Errorf("Count() = %d, want 300", n)
	}
}
