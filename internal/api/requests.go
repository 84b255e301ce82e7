// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/models"
	"github.com/tomtom215/starfield/internal/validation"
)

// maxBodyBytes bounds a JSON request body.
const maxBodyBytes = 1 << 20

// Request defaults.
const (
	defaultRegionRadius     = 5.0
	defaultRegionLimit      = 5000
	defaultBrightMagLimit   = 7.0
	defaultConeMaxStars     = 10000
	defaultConeMinMagnitude = 20.0
	defaultFrustumFOV       = 50.0
	defaultFrustumDistance  = 1000.0
	defaultFrustumMaxStars  = 50000
	defaultNearbyMaxStars   = 1000
	defaultCenterRadius     = 5.0
	defaultCenterMaxStars   = 50000
	defaultCenterMagnitude  = 18.0

	// Sagittarius A*
	galacticCenterRA  = 266.4
	galacticCenterDec = -29.0
)

// RegionRequest holds the query parameters of GET /stars/region.
type RegionRequest struct {
	RA     *float64 `query:"ra" validate:"required,ra"`
	Dec    *float64 `query:"dec" validate:"required,dec"`
	Radius float64  `query:"radius" validate:"gt=0,lte=30"`
	Limit  int      `query:"limit" validate:"min=1,max=50000"`
}

// BrightRequest holds the query parameters of GET /stars/bright.
type BrightRequest struct {
	MagLimit float64 `query:"mag_limit" validate:"gte=1,lte=10"`
}

// GalacticCenterRequest holds the query parameters of GET /stars/galactic-center.
type GalacticCenterRequest struct {
	Radius       float64 `query:"radius" validate:"gte=0.1,lte=20"`
	MaxStars     int     `query:"max_stars" validate:"min=100,max=100000"`
	MinMagnitude float64 `query:"min_magnitude" validate:"gte=0,lte=25"`
}

// ConeRequest is the body of POST /stars/cone. MinMagnitude is the faintest
// magnitude returned.
type ConeRequest struct {
	RA           *float64 `json:"ra" validate:"required,ra"`
	Dec          *float64 `json:"dec" validate:"required,dec"`
	Radius       *float64 `json:"radius" validate:"required,gt=0,lte=10"`
	MaxStars     int      `json:"max_stars" validate:"min=1,max=100000"`
	MinMagnitude float64  `json:"min_magnitude" validate:"gte=0,lte=25"`
}

// FrustumRequest is the body of POST /stars/frustum.
type FrustumRequest struct {
	CameraX     *float64 `json:"camera_x" validate:"required"`
	CameraY     *float64 `json:"camera_y" validate:"required"`
	CameraZ     *float64 `json:"camera_z" validate:"required"`
	DirectionX  *float64 `json:"direction_x" validate:"required"`
	DirectionY  *float64 `json:"direction_y" validate:"required"`
	DirectionZ  *float64 `json:"direction_z" validate:"required"`
	FOV         float64  `json:"fov" validate:"gte=1,lte=120"`
	MaxDistance float64  `json:"max_distance" validate:"gte=1"`
	MaxStars    int      `json:"max_stars" validate:"min=1,max=100000"`
}

// NearbyRequest is the body of POST /stars/nearby. BrightLimit is the
// faintest magnitude returned; zero means the configured default.
type NearbyRequest struct {
	X           *float64 `json:"x" validate:"required"`
	Y           *float64 `json:"y" validate:"required"`
	Z           *float64 `json:"z" validate:"required"`
	MaxDistance *float64 `json:"max_distance" validate:"required,gt=0"`
	BrightLimit float64  `json:"bright_limit" validate:"gte=0,lte=25"`
	MaxStars    int      `json:"max_stars" validate:"min=1,max=100000"`
}

// Query builds the cone covered by the request.
func (r *RegionRequest) Query(faintLimit float64, maxCount int) models.Cone {
	return models.Cone{
		RA:         *r.RA,
		Dec:        *r.Dec,
		Radius:     r.Radius,
		FaintLimit: faintLimit,
		MaxCount:   capCount(r.Limit, maxCount),
	}
}

// Query builds the bright-star query.
func (r *BrightRequest) Query(maxCount int) models.Bright {
	return models.Bright{MagLimit: r.MagLimit, MaxCount: maxCount}
}

// Query builds the cone around the galactic center.
func (r *GalacticCenterRequest) Query(maxCount int) models.Cone {
	return models.Cone{
		RA:         galacticCenterRA,
		Dec:        galacticCenterDec,
		Radius:     r.Radius,
		FaintLimit: r.MinMagnitude,
		MaxCount:   capCount(r.MaxStars, maxCount),
	}
}

// Query builds the cone query.
func (r *ConeRequest) Query(maxCount int) models.Cone {
	return models.Cone{
		RA:         *r.RA,
		Dec:        *r.Dec,
		Radius:     *r.Radius,
		FaintLimit: r.MinMagnitude,
		MaxCount:   capCount(r.MaxStars, maxCount),
	}
}

// Query builds the frustum query.
func (r *FrustumRequest) Query(maxCount int) models.Frustum {
	return models.Frustum{
		Origin:      celestial.Vector3{X: *r.CameraX, Y: *r.CameraY, Z: *r.CameraZ},
		Direction:   celestial.Vector3{X: *r.DirectionX, Y: *r.DirectionY, Z: *r.DirectionZ},
		FOV:         r.FOV,
		MaxDistance: r.MaxDistance,
		MaxCount:    capCount(r.MaxStars, maxCount),
	}
}

// Query builds the region query.
func (r *NearbyRequest) Query(defaultBrightLimit float64, maxCount int) models.Region {
	limit := r.BrightLimit
	if limit == 0 {
		limit = defaultBrightLimit
	}
	return models.Region{
		Origin:      celestial.Vector3{X: *r.X, Y: *r.Y, Z: *r.Z},
		MaxDistance: *r.MaxDistance,
		BrightLimit: limit,
		MaxCount:    capCount(r.MaxStars, maxCount),
	}
}

// capCount applies the server-wide result cap. A non-positive cap means none.
func capCount(requested, maxCount int) int {
	if maxCount > 0 && requested > maxCount {
		return maxCount
	}
	return requested
}

// paramError reports a query parameter that could not be parsed.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be a number, got %q", e.name, e.value)
}

// paramReader parses numeric query parameters, keeping the first failure.
type paramReader struct {
	r   *http.Request
	err error
}

func (p *paramReader) float(key string, defaultValue float64) float64 {
	value := p.r.URL.Query().Get(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.err = &paramError{name: key, value: value}
		return defaultValue
	}
	return f
}

// optionalFloat returns nil when the parameter is absent so "required"
// validation can report it.
func (p *paramReader) optionalFloat(key string) *float64 {
	if p.r.URL.Query().Get(key) == "" {
		return nil
	}
	f := p.float(key, 0)
	return &f
}

func (p *paramReader) int(key string, defaultValue int) int {
	value := p.r.URL.Query().Get(key)
	if value == "" || p.err != nil {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.err = &paramError{name: key, value: value}
		return defaultValue
	}
	return n
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return nil
}

// validateRequest runs struct validation and converts the result to the
// API error shape.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
