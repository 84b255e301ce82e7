// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package models

import (
	"fmt"

	"github.com/tomtom215/starfield/internal/celestial"
)

// Star is an immutable catalog entry. Derived fields (distance, Cartesian
// position, display color) are populated once by NewStar and always agree
// with the angular position under the celestial package's projection.
type Star struct {
	SourceID   string   `json:"source_id"`
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Parallax   *float64 `json:"parallax,omitempty"`
	DistancePC float64  `json:"distance_pc"`
	Magnitude  float64  `json:"magnitude"`
	ColorBPRP  *float64 `json:"bp_rp,omitempty"`

	ColorR float64 `json:"color_r"`
	ColorG float64 `json:"color_g"`
	ColorB float64 `json:"color_b"`

	PMRA           *float64 `json:"pm_ra,omitempty"`
	PMDec          *float64 `json:"pm_dec,omitempty"`
	RadialVelocity *float64 `json:"radial_velocity,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// Position returns the star's Cartesian position in parsecs.
func (s *Star) Position() celestial.Vector3 {
	return celestial.Vector3{X: s.X, Y: s.Y, Z: s.Z}
}

// Observation is the raw measurement a Star is derived from.
type Observation struct {
	SourceID  string
	RA        float64
	Dec       float64
	Parallax  *float64
	Magnitude float64
	ColorBPRP *float64

	// DistancePC overrides the parallax-derived distance when set.
	DistancePC *float64

	PMRA           *float64
	PMDec          *float64
	RadialVelocity *float64
	Temperature    *float64
}

// NewStar derives a Star from an observation.
func NewStar(obs Observation) (Star, error) {
	if obs.SourceID == "" {
		return Star{}, fmt.Errorf("%w: empty source id", celestial.ErrInvalidInput)
	}
	if obs.RA < 0 || obs.RA >= 360 || obs.Dec < -90 || obs.Dec > 90 {
		return Star{}, fmt.Errorf("%w: position out of range for %s (ra=%v dec=%v)",
			celestial.ErrInvalidInput, obs.SourceID, obs.RA, obs.Dec)
	}

	distance := celestial.ParallaxToDistance(obs.Parallax)
	if obs.DistancePC != nil {
		distance = *obs.DistancePC
	}

	pos, err := celestial.EquatorialToCartesian(obs.RA, obs.Dec, distance)
	if err != nil {
		return Star{}, fmt.Errorf("failed to project %s: %w", obs.SourceID, err)
	}
	color := celestial.ColorIndexToRGB(obs.ColorBPRP)

	return Star{
		SourceID:       obs.SourceID,
		RA:             obs.RA,
		Dec:            obs.Dec,
		X:              pos.X,
		Y:              pos.Y,
		Z:              pos.Z,
		Parallax:       obs.Parallax,
		DistancePC:     distance,
		Magnitude:      obs.Magnitude,
		ColorBPRP:      obs.ColorBPRP,
		ColorR:         color.R,
		ColorG:         color.G,
		ColorB:         color.B,
		PMRA:           obs.PMRA,
		PMDec:          obs.PMDec,
		RadialVelocity: obs.RadialVelocity,
		Temperature:    obs.Temperature,
	}, nil
}
