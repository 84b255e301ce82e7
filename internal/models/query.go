// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/tomtom215/starfield/internal/celestial"
)

// ErrInvalidQuery is returned when a query's parameters are malformed.
var ErrInvalidQuery = errors.New("invalid query")

// Domain maxima shared by validation and the HTTP layer.
const (
	MaxConeRadiusDeg = 90.0
	MaxFOVDeg        = 120.0
	MaxResultCount   = 100000
)

// Kind identifies a query variant.
type Kind string

const (
	KindCone    Kind = "cone"
	KindFrustum Kind = "frustum"
	KindRegion  Kind = "region"
	KindBright  Kind = "bright"
)

// CanonicalField is one named, rounded parameter of a query. Precision is
// the number of decimal places the value is rounded to before hashing.
type CanonicalField struct {
	Name      string
	Value     float64
	Precision int
}

// Query is implemented by every query variant (Cone, Frustum, Region, Bright).
type Query interface {
	Kind() Kind
	Validate() error
	CanonicalFields() []CanonicalField
	Limit() int
}

// Cone selects stars within Radius degrees of (RA, Dec) that are brighter
// than FaintLimit.
type Cone struct {
	RA         float64 `json:"ra"`
	Dec        float64 `json:"dec"`
	Radius     float64 `json:"radius"`
	MaxCount   int     `json:"max_count"`
	FaintLimit float64 `json:"faint_limit"`
}

// Frustum selects stars visible from a camera looking along Direction. The
// direction does not need to be normalized.
type Frustum struct {
	Origin      celestial.Vector3 `json:"origin"`
	Direction   celestial.Vector3 `json:"direction"`
	FOV         float64           `json:"fov"`
	MaxDistance float64           `json:"max_distance"`
	MaxCount    int               `json:"max_count"`
}

// Region selects the stars nearest to Origin within MaxDistance parsecs
// whose magnitude is below BrightLimit.
type Region struct {
	Origin      celestial.Vector3 `json:"origin"`
	MaxDistance float64           `json:"max_distance"`
	BrightLimit float64           `json:"bright_limit"`
	MaxCount    int               `json:"max_count"`
}

// Bright selects the brightest stars in the whole catalog.
type Bright struct {
	MagLimit float64 `json:"mag_limit"`
	MaxCount int     `json:"max_count"`
}

func (Cone) Kind() Kind    { return KindCone }
func (Frustum) Kind() Kind { return KindFrustum }
func (Region) Kind() Kind  { return KindRegion }
func (Bright) Kind() Kind  { return KindBright }

func (q Cone) Limit() int    { return q.MaxCount }
func (q Frustum) Limit() int { return q.MaxCount }
func (q Region) Limit() int  { return q.MaxCount }
func (q Bright) Limit() int  { return q.MaxCount }

// Validate checks the cone's parameters.
func (q Cone) Validate() error {
	if !finite(q.RA) || q.RA < 0 || q.RA >= 360 {
		return invalid("ra must be in [0, 360), got %v", q.RA)
	}
	if !finite(q.Dec) || q.Dec < -90 || q.Dec > 90 {
		return invalid("dec must be in [-90, 90], got %v", q.Dec)
	}
	if !finite(q.Radius) || q.Radius <= 0 || q.Radius > MaxConeRadiusDeg {
		return invalid("radius must be in (0, %v], got %v", MaxConeRadiusDeg, q.Radius)
	}
	if !finite(q.FaintLimit) {
		return invalid("faint limit must be finite")
	}
	return validateCount(q.MaxCount)
}

// Validate checks the frustum's parameters.
func (q Frustum) Validate() error {
	if !finiteVec(q.Origin) || !finiteVec(q.Direction) {
		return invalid("origin and direction must be finite")
	}
	if _, ok := q.Direction.Normalize(); !ok {
		return invalid("direction must be a non-zero vector")
	}
	if !finite(q.FOV) || q.FOV <= 0 || q.FOV > MaxFOVDeg {
		return invalid("fov must be in (0, %v], got %v", MaxFOVDeg, q.FOV)
	}
	if !finite(q.MaxDistance) || q.MaxDistance <= 0 {
		return invalid("max distance must be positive, got %v", q.MaxDistance)
	}
	return validateCount(q.MaxCount)
}

// Validate checks the region's parameters.
func (q Region) Validate() error {
	if !finiteVec(q.Origin) {
		return invalid("origin must be finite")
	}
	if !finite(q.MaxDistance) || q.MaxDistance <= 0 {
		return invalid("max distance must be positive, got %v", q.MaxDistance)
	}
	if !finite(q.BrightLimit) {
		return invalid("bright limit must be finite")
	}
	return validateCount(q.MaxCount)
}

// Validate checks the bright-star query's parameters.
func (q Bright) Validate() error {
	if !finite(q.MagLimit) {
		return invalid("magnitude limit must be finite")
	}
	return validateCount(q.MaxCount)
}

// CanonicalFields lists the cone's parameters for cache key derivation.
func (q Cone) CanonicalFields() []CanonicalField {
	return []CanonicalField{
		{Name: "ra", Value: q.RA, Precision: 4},
		{Name: "dec", Value: q.Dec, Precision: 4},
		{Name: "radius", Value: q.Radius, Precision: 4},
		{Name: "faint_limit", Value: q.FaintLimit, Precision: 2},
		{Name: "max_count", Value: float64(q.MaxCount)},
	}
}

// CanonicalFields lists the frustum's parameters for cache key derivation.
func (q Frustum) CanonicalFields() []CanonicalField {
	return []CanonicalField{
		{Name: "origin_x", Value: q.Origin.X, Precision: 2},
		{Name: "origin_y", Value: q.Origin.Y, Precision: 2},
		{Name: "origin_z", Value: q.Origin.Z, Precision: 2},
		{Name: "direction_x", Value: q.Direction.X, Precision: 3},
		{Name: "direction_y", Value: q.Direction.Y, Precision: 3},
		{Name: "direction_z", Value: q.Direction.Z, Precision: 3},
		{Name: "fov", Value: q.FOV, Precision: 1},
		{Name: "max_distance", Value: q.MaxDistance, Precision: 1},
		{Name: "max_count", Value: float64(q.MaxCount)},
	}
}

// CanonicalFields lists the region's parameters for cache key derivation.
func (q Region) CanonicalFields() []CanonicalField {
	return []CanonicalField{
		{Name: "origin_x", Value: q.Origin.X, Precision: 2},
		{Name: "origin_y", Value: q.Origin.Y, Precision: 2},
		{Name: "origin_z", Value: q.Origin.Z, Precision: 2},
		{Name: "max_distance", Value: q.MaxDistance, Precision: 1},
		{Name: "bright_limit", Value: q.BrightLimit, Precision: 2},
		{Name: "max_count", Value: float64(q.MaxCount)},
	}
}

// CanonicalFields lists the bright-star query's parameters for cache key derivation.
func (q Bright) CanonicalFields() []CanonicalField {
	return []CanonicalField{
		{Name: "mag_limit", Value: q.MagLimit, Precision: 2},
		{Name: "max_count", Value: float64(q.MaxCount)},
	}
}

func validateCount(n int) error {
	if n <= 0 || n > MaxResultCount {
		return invalid("max count must be in [1, %d], got %d", MaxResultCount, n)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidQuery}, args...)...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v celestial.Vector3) bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}
