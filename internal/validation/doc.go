// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator and translates failures into
// messages that name fields by their wire names (json or query tag), so a
// client sees "radius must be less than or equal to 10" rather than a Go
// field name.
//
// # Custom Tags
//
//   - ra: right ascension in [0, 360)
//   - dec: declination in [-90, 90]
//
// # Usage
//
//	type ConeRequest struct {
//	    RA     float64 `json:"ra" validate:"ra"`
//	    Dec    float64 `json:"dec" validate:"dec"`
//	    Radius float64 `json:"radius" validate:"gt=0,lte=10"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Domain rules that span fields (a non-zero view direction, for example) are
// checked by the query types in the models package after this layer.
package validation
