// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package spatial answers geometric star queries against a catalog.Store.
//
// The engine is stateless apart from its store and safe for concurrent use.
// Every operation validates its query first and returns results in a
// deterministic order so identical queries produce identical responses:
//
//   - Cone: magnitude ascending, then angular separation, then source ID
//   - Frustum: as Cone (a frustum is answered as the cone around its axis)
//   - Region: distance from the origin ascending, then magnitude, then source ID
//   - Bright: magnitude ascending, then source ID
package spatial

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/models"
)

// Frustum to cone mapping constants.
const (
	// frustumRadiusFactor widens the half field of view so the cone covers
	// the corners of the view rectangle.
	frustumRadiusFactor = 0.75

	frustumMaxFaintLimit  = 20.0
	frustumBaseFaintLimit = 15.0
	frustumReferenceDist  = 100.0
)

// Engine executes spatial queries.
type Engine struct {
	store catalog.Store
}

// NewEngine creates an engine backed by store.
func NewEngine(store catalog.Store) *Engine {
	return &Engine{store: store}
}

// Execute dispatches q to the matching operation.
func (e *Engine) Execute(ctx context.Context, q models.Query) ([]models.Star, error) {
	switch v := q.(type) {
	case models.Cone:
		return e.Cone(ctx, v)
	case models.Frustum:
		return e.Frustum(ctx, v)
	case models.Region:
		return e.Region(ctx, v)
	case models.Bright:
		return e.Bright(ctx, v)
	case nil:
		return nil, fmt.Errorf("%w: nil query", models.ErrInvalidQuery)
	default:
		return nil, fmt.Errorf("%w: unsupported query kind %q", models.ErrInvalidQuery, q.Kind())
	}
}

// Cone returns stars within q.Radius degrees of (q.RA, q.Dec) that are
// brighter than q.FaintLimit.
func (e *Engine) Cone(ctx context.Context, q models.Cone) ([]models.Star, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ra, dec := coneBox(q.RA, q.Dec, q.Radius)
	candidates, err := e.store.ByAngularBox(ctx, ra, dec)
	if err != nil {
		return nil, err
	}

	return SelectCone(candidates, q), nil
}

// SelectCone filters candidates to the cone q and returns them in cone
// order, capped at q.MaxCount. Candidates may come from any source.
func SelectCone(candidates []models.Star, q models.Cone) []models.Star {
	type match struct {
		star       models.Star
		separation float64
	}
	matches := make([]match, 0, len(candidates))
	for i := range candidates {
		s := &candidates[i]
		if s.Magnitude >= q.FaintLimit {
			continue
		}
		sep := celestial.AngularSeparation(q.RA, q.Dec, s.RA, s.Dec)
		if sep <= q.Radius {
			matches = append(matches, match{star: *s, separation: sep})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := &matches[i], &matches[j]
		if a.star.Magnitude != b.star.Magnitude {
			return a.star.Magnitude < b.star.Magnitude
		}
		if a.separation != b.separation {
			return a.separation < b.separation
		}
		return a.star.SourceID < b.star.SourceID
	})

	n := min(len(matches), q.MaxCount)
	result := make([]models.Star, n)
	for i := 0; i < n; i++ {
		result[i] = matches[i].star
	}
	return result
}

// Frustum returns the stars visible along a camera's view axis. It is
// answered as a cone around the axis; see FrustumToCone.
func (e *Engine) Frustum(ctx context.Context, q models.Frustum) ([]models.Star, error) {
	cone, err := FrustumToCone(q)
	if err != nil {
		return nil, err
	}
	return e.Cone(ctx, cone)
}

// Region returns the stars nearest to q.Origin.
func (e *Engine) Region(ctx context.Context, q models.Region) ([]models.Star, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return e.store.ByDistanceFrom(ctx, q.Origin, q.MaxDistance, q.BrightLimit, q.MaxCount)
}

// Bright returns the brightest stars in the catalog.
func (e *Engine) Bright(ctx context.Context, q models.Bright) ([]models.Star, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	stars, err := e.store.ByMagnitudeCeiling(ctx, q.MagLimit)
	if err != nil {
		return nil, err
	}
	if len(stars) > q.MaxCount {
		stars = stars[:q.MaxCount]
	}
	return stars, nil
}

// FrustumToCone maps a view frustum to the sky cone it is answered with.
//
// The cone is centered on the view direction with a radius of 0.75 × fov.
// The faint limit grows with the view depth, min(20, 15 + log10(d/100)),
// so deep views reach fainter stars. The frustum origin does not move the
// cone: stars are selected by direction alone.
func FrustumToCone(q models.Frustum) (models.Cone, error) {
	if err := q.Validate(); err != nil {
		return models.Cone{}, err
	}

	dir, ok := q.Direction.Normalize()
	if !ok {
		return models.Cone{}, fmt.Errorf("%w: direction must be a non-zero vector", models.ErrInvalidQuery)
	}
	ra, dec := celestial.CartesianToEquatorial(dir.X, dir.Y, dir.Z)

	return models.Cone{
		RA:         ra,
		Dec:        dec,
		Radius:     q.FOV * frustumRadiusFactor,
		MaxCount:   q.MaxCount,
		FaintLimit: FrustumFaintLimit(q.MaxDistance),
	}, nil
}

// FrustumFaintLimit returns the faint magnitude limit for a view depth in parsecs.
func FrustumFaintLimit(maxDistance float64) float64 {
	return math.Min(frustumMaxFaintLimit, frustumBaseFaintLimit+math.Log10(maxDistance/frustumReferenceDist))
}

// coneBox returns the RA and Dec ranges that bound a cone of radius degrees
// around (ra, dec). The RA range wraps through 0 when Min > Max, and covers
// the whole circle when the cone reaches a pole.
func coneBox(ra, dec, radius float64) (raRange, decRange catalog.Range) {
	decRange = catalog.Range{
		Min: math.Max(-90, dec-radius),
		Max: math.Min(90, dec+radius),
	}

	fullRA := catalog.Range{Min: 0, Max: 360}
	if decRange.Min <= -90 || decRange.Max >= 90 {
		return fullRA, decRange
	}

	maxAbsDec := math.Max(math.Abs(dec-radius), math.Abs(dec+radius))
	halfWidth := radius / math.Cos(maxAbsDec*math.Pi/180)
	if halfWidth >= 180 {
		return fullRA, decRange
	}

	lo, hi := ra-halfWidth, ra+halfWidth
	if lo >= 0 && hi < 360 {
		return catalog.Range{Min: lo, Max: hi}, decRange
	}
	return catalog.Range{Min: celestial.NormalizeRA(lo), Max: celestial.NormalizeRA(hi)}, decRange
}
