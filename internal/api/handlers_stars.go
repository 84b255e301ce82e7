// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package api

import (
	"net/http"

	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/models"
	"github.com/tomtom215/starfield/internal/query"
)

// StarsResponse is the data payload of every star query endpoint.
type StarsResponse struct {
	Count          int           `json:"count"`
	Stars          []models.Star `json:"stars"`
	Cached         bool          `json:"cached"`
	QueryTimeMs    float64       `json:"query_time_ms"`
	MagnitudeLimit *float64      `json:"magnitude_limit,omitempty"`
}

// StarsRegion handles GET /api/v1/stars/region.
//
// Query parameters: ra, dec (required), radius (degrees, default 5, at
// most 30) and limit (default 5000, at most 50000). Stars are returned
// brightest first down to the default faint limit.
func (h *Handler) StarsRegion(w http.ResponseWriter, r *http.Request) {
	p := &paramReader{r: r}
	req := RegionRequest{
		RA:     p.optionalFloat("ra"),
		Dec:    p.optionalFloat("dec"),
		Radius: p.float("radius", defaultRegionRadius),
		Limit:  p.int("limit", defaultRegionLimit),
	}
	if !h.checkParams(w, r, p, &req) {
		return
	}

	h.runQuery(w, r, req.Query(h.defaultFaintLimit(), h.maxCount()), nil)
}

// StarsBright handles GET /api/v1/stars/bright.
//
// Returns the full-sky set of stars brighter than mag_limit (1 to 10,
// default 7), brightest first.
func (h *Handler) StarsBright(w http.ResponseWriter, r *http.Request) {
	p := &paramReader{r: r}
	req := BrightRequest{
		MagLimit: p.float("mag_limit", defaultBrightMagLimit),
	}
	if !h.checkParams(w, r, p, &req) {
		return
	}

	limit := req.MagLimit
	maxCount := h.maxCount()
	if maxCount <= 0 {
		maxCount = models.MaxResultCount
	}
	h.runQuery(w, r, req.Query(maxCount), &limit)
}

// StarsGalacticCenter handles GET /api/v1/stars/galactic-center, a cone
// around Sagittarius A*.
func (h *Handler) StarsGalacticCenter(w http.ResponseWriter, r *http.Request) {
	p := &paramReader{r: r}
	req := GalacticCenterRequest{
		Radius:       p.float("radius", defaultCenterRadius),
		MaxStars:     p.int("max_stars", defaultCenterMaxStars),
		MinMagnitude: p.float("min_magnitude", defaultCenterMagnitude),
	}
	if !h.checkParams(w, r, p, &req) {
		return
	}

	h.runQuery(w, r, req.Query(h.maxCount()), nil)
}

// StarsCone handles POST /api/v1/stars/cone.
func (h *Handler) StarsCone(w http.ResponseWriter, r *http.Request) {
	req := ConeRequest{
		MaxStars:     defaultConeMaxStars,
		MinMagnitude: defaultConeMinMagnitude,
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.runQuery(w, r, req.Query(h.maxCount()), nil)
}

// StarsFrustum handles POST /api/v1/stars/frustum.
//
// The camera position is accepted for compatibility; the query looks along
// the view direction from the origin.
func (h *Handler) StarsFrustum(w http.ResponseWriter, r *http.Request) {
	req := FrustumRequest{
		FOV:         defaultFrustumFOV,
		MaxDistance: defaultFrustumDistance,
		MaxStars:    defaultFrustumMaxStars,
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.runQuery(w, r, req.Query(h.maxCount()), nil)
}

// StarsNearby handles POST /api/v1/stars/nearby, the stars nearest to a
// point in space.
func (h *Handler) StarsNearby(w http.ResponseWriter, r *http.Request) {
	req := NearbyRequest{
		MaxStars: defaultNearbyMaxStars,
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	h.runQuery(w, r, req.Query(h.defaultFaintLimit(), h.maxCount()), nil)
}

// checkParams reports parse and validation failures. It returns false when
// a response has been written.
func (h *Handler) checkParams(w http.ResponseWriter, r *http.Request, p *paramReader, req interface{}) bool {
	if p.err != nil {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeInvalidInput, p.err.Error())
		return false
	}
	if apiErr := validateRequest(req); apiErr != nil {
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// decodeBody decodes and validates a JSON body. It returns false when a
// response has been written.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := decodeJSON(w, r, req); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return false
	}
	if apiErr := validateRequest(req); apiErr != nil {
		NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// runQuery executes q and writes the star payload or the mapped error.
func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request, q models.Query, magLimit *float64) {
	rw := NewResponseWriter(w, r)

	result, err := h.queries.Execute(r.Context(), q)
	if err != nil {
		respondQueryError(rw, r, q, err)
		return
	}

	rw.SuccessWithMeta(StarsResponse{
		Count:          result.Count,
		Stars:          result.Stars,
		Cached:         result.Cached,
		QueryTimeMs:    result.QueryTimeMs(),
		MagnitudeLimit: magLimit,
	}, &APIMeta{Source: result.Source})
}

// respondQueryError maps a query failure to a status code and error code.
func respondQueryError(rw *ResponseWriter, r *http.Request, q models.Query, err error) {
	switch query.Category(err) {
	case query.CategoryInvalidInput:
		rw.Error(http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case query.CategoryUpstreamUnavailable:
		rw.ExternalServiceError("gaia-archive", err)
	case query.CategoryCanceled:
		logging.Ctx(r.Context()).Info().Err(err).Str("kind", string(q.Kind())).Msg("Query canceled")
		rw.Error(http.StatusServiceUnavailable, ErrCodeRequestCanceled, "Query canceled or timed out")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("kind", string(q.Kind())).Msg("Query failed")
		rw.InternalError("Query failed")
	}
}
