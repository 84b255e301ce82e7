// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package celestial

// RGB is a display color with each channel in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Gaia BP-RP color index domain mapped onto [0, 1].
const (
	colorIndexMin  = -0.5
	colorIndexSpan = 4.5
)

// ColorIndexToRGB maps a BP-RP color index to an approximate stellar color.
// The normalized index runs through four bands: hot blue-white, white,
// yellow-orange, and red. Out of range inputs are clamped and a missing
// index is treated as 0.
func ColorIndexToRGB(bpRp *float64) RGB {
	var ci float64
	if bpRp != nil && finite(*bpRp) {
		ci = *bpRp
	}

	n := clamp((ci-colorIndexMin)/colorIndexSpan, 0, 1)

	var c RGB
	switch {
	case n < 0.2:
		c = RGB{R: 0.6 + n*2, G: 0.7 + n*1.5, B: 1.0}
	case n < 0.5:
		c = RGB{R: 1.0, G: 1.0, B: 1.0 - (n-0.2)*2}
	case n < 0.7:
		c = RGB{R: 1.0, G: 1.0 - (n-0.5)*1.5, B: 0.4}
	default:
		c = RGB{R: 1.0, G: 0.6 - (n - 0.7), B: 0.3}
	}

	c.R = clamp(c.R, 0, 1)
	c.G = clamp(c.G, 0, 1)
	c.B = clamp(c.B, 0, 1)
	return c
}
