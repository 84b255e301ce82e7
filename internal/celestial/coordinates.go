// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package celestial implements the coordinate math shared by the catalog,
// the spatial query engine, and the upstream archive client.
//
// All functions are pure and safe for concurrent use. The package uses one
// Cartesian convention everywhere: right-handed, with the z axis pointing at
// the north celestial pole and the x axis at RA 0h:
//
//	x = d·cos(dec)·cos(ra)
//	y = d·cos(dec)·sin(ra)
//	z = d·sin(dec)
//
// Angles are in degrees and distances are in parsecs.
package celestial

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a numeric argument is outside its domain
// (negative distance, NaN, infinity). It is never retried.
var ErrInvalidInput = errors.New("invalid input")

const (
	// DefaultDistancePC is used when a star has no usable parallax.
	DefaultDistancePC = 1000.0

	// MinDistancePC and MaxDistancePC bound derived distances. Parallaxes
	// outside this window are numerically unreliable.
	MinDistancePC = 0.1
	MaxDistancePC = 100000.0

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Vector3 is a position or direction in the equatorial Cartesian frame.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Length returns the Euclidean norm of v.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the Euclidean distance between v and o.
func (v Vector3) Distance(o Vector3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged with ok=false.
func (v Vector3) Normalize() (Vector3, bool) {
	l := v.Length()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return v, false
	}
	return Vector3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, true
}

// EquatorialToCartesian projects (ra, dec, distance) into Cartesian space.
func EquatorialToCartesian(ra, dec, distance float64) (Vector3, error) {
	if !finite(ra) || !finite(dec) || !finite(distance) {
		return Vector3{}, fmt.Errorf("%w: non-finite coordinate (ra=%v dec=%v distance=%v)", ErrInvalidInput, ra, dec, distance)
	}
	if distance < 0 {
		return Vector3{}, fmt.Errorf("%w: negative distance %v", ErrInvalidInput, distance)
	}

	raRad := ra * degToRad
	decRad := dec * degToRad
	cosDec := math.Cos(decRad)

	return Vector3{
		X: distance * cosDec * math.Cos(raRad),
		Y: distance * cosDec * math.Sin(raRad),
		Z: distance * math.Sin(decRad),
	}, nil
}

// CartesianToEquatorial returns the (ra, dec) pointing of (x, y, z), with ra
// in [0, 360). The origin has no direction and maps to (0, 0).
func CartesianToEquatorial(x, y, z float64) (ra, dec float64) {
	d := math.Sqrt(x*x + y*y + z*z)
	if d == 0 {
		return 0, 0
	}

	ra = NormalizeRA(math.Atan2(y, x) * radToDeg)
	dec = math.Asin(clamp(z/d, -1, 1)) * radToDeg
	return ra, dec
}

// NormalizeRA wraps an angle into [0, 360).
func NormalizeRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	// -1e-17 + 360 rounds to 360
	if ra >= 360 {
		ra = 0
	}
	return ra
}

// ParallaxToDistance converts a parallax in milliarcseconds to a distance in
// parsecs. Missing or non-positive parallaxes return DefaultDistancePC.
func ParallaxToDistance(parallaxMas *float64) float64 {
	if parallaxMas == nil || !finite(*parallaxMas) || *parallaxMas <= 0 {
		return DefaultDistancePC
	}
	return clamp(1000.0 / *parallaxMas, MinDistancePC, MaxDistancePC)
}

// MagnitudeDistanceEstimate guesses a distance from apparent magnitude alone,
// assuming an absolute magnitude of 5. It is only used for upstream rows that
// carry no parallax.
func MagnitudeDistanceEstimate(magnitude float64) float64 {
	if !finite(magnitude) {
		return DefaultDistancePC
	}
	return clamp(math.Pow(10, (magnitude-5)/5+1), MinDistancePC, MaxDistancePC)
}

// AngularSeparation returns the great-circle distance in degrees between two
// sky positions. The Vincenty form stays accurate for both tiny and antipodal
// separations.
func AngularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	phi1, phi2 := dec1*degToRad, dec2*degToRad
	dLambda := (ra2 - ra1) * degToRad

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	sinPhi2, cosPhi2 := math.Sincos(phi2)
	sinDL, cosDL := math.Sincos(dLambda)

	a := cosPhi2 * sinDL
	b := cosPhi1*sinPhi2 - sinPhi1*cosPhi2*cosDL
	num := math.Sqrt(a*a + b*b)
	den := sinPhi1*sinPhi2 + cosPhi1*cosPhi2*cosDL

	return math.Atan2(num, den) * radToDeg
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
