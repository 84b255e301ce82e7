// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

// Package query ties the cache, the local spatial engine, and the upstream
// archive together into a single Execute call.
//
// A query is validated, looked up in the cache by its canonical key, and on
// a miss answered either locally or from the archive. Cone and frustum
// queries that reach fainter than the local catalog's completeness limit
// go to the archive when one is configured. Successful answers are cached;
// an unavailable local catalog yields an empty, uncached answer.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/starfield/internal/cache"
	"github.com/tomtom215/starfield/internal/catalog"
	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/models"
	"github.com/tomtom215/starfield/internal/spatial"
	"github.com/tomtom215/starfield/internal/upstream"
)

// Result sources.
const (
	SourceCache    = "cache"
	SourceLocal    = "local"
	SourceUpstream = "upstream"
	SourceNone     = "none"
)

// ConeFetcher fetches cone searches from a remote archive. *upstream.Fetcher
// implements it.
type ConeFetcher interface {
	Cone(ctx context.Context, req upstream.ConeRequest) ([]models.Star, error)
}

// Result is the answer to one query.
type Result struct {
	Stars   []models.Star
	Count   int
	Cached  bool
	Source  string
	Elapsed time.Duration
}

// QueryTimeMs returns the elapsed time in milliseconds.
func (r *Result) QueryTimeMs() float64 {
	return float64(r.Elapsed.Microseconds()) / 1000
}

// Service executes queries. It is safe for concurrent use.
type Service struct {
	engine        *spatial.Engine
	cache         *cache.Cache
	fetcher       ConeFetcher
	localMagLimit float64
}

// NewService creates a query service. cache and fetcher may be nil to run
// without a result cache or without the remote archive. Pass a nil
// interface, not a typed nil pointer, to disable the archive.
func NewService(engine *spatial.Engine, c *cache.Cache, fetcher ConeFetcher, localMagLimit float64) *Service {
	return &Service{
		engine:        engine,
		cache:         c,
		fetcher:       fetcher,
		localMagLimit: localMagLimit,
	}
}

// UpstreamEnabled reports whether an archive is configured.
func (s *Service) UpstreamEnabled() bool {
	return s.fetcher != nil
}

// Execute answers q from the cache, the local catalog, or the archive.
func (s *Service) Execute(ctx context.Context, q models.Query) (*Result, error) {
	start := time.Now()

	if q == nil {
		return nil, fmt.Errorf("%w: nil query", models.ErrInvalidQuery)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	kind := string(q.Kind())

	key := cache.CanonicalKey(q)
	if s.cache != nil {
		if stars, ok := s.cache.Get(ctx, key); ok {
			return s.finish(kind, SourceCache, stars, true, start), nil
		}
	}

	stars, source, err := s.fetch(ctx, q)
	if err != nil {
		if errors.Is(err, catalog.ErrCatalogUnavailable) {
			logging.Ctx(ctx).Warn().Err(err).Str("component", "query").Str("kind", kind).Msg("Catalog unavailable, returning empty result")
			return s.finish(kind, SourceNone, []models.Star{}, false, start), nil
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, stars)
	}
	return s.finish(kind, source, stars, false, start), nil
}

// fetch answers a cache miss. Cone-shaped queries deeper than the local
// catalog go to the archive; so do cone-shaped queries the local catalog
// cannot serve at all.
func (s *Service) fetch(ctx context.Context, q models.Query) ([]models.Star, string, error) {
	cone, coneShaped, err := asCone(q)
	if err != nil {
		return nil, "", err
	}

	if coneShaped && s.fetcher != nil && cone.FaintLimit > s.localMagLimit {
		stars, err := s.fetchUpstream(ctx, cone)
		return stars, SourceUpstream, err
	}

	stars, err := s.engine.Execute(ctx, q)
	if errors.Is(err, catalog.ErrCatalogUnavailable) && coneShaped && s.fetcher != nil {
		logging.Ctx(ctx).Info().Str("component", "query").Str("kind", string(q.Kind())).Msg("Catalog unavailable, falling back to archive")
		stars, err = s.fetchUpstream(ctx, cone)
		return stars, SourceUpstream, err
	}
	return stars, SourceLocal, err
}

// fetchUpstream runs the cone against the archive and applies the same
// filtering and ordering as a local cone.
func (s *Service) fetchUpstream(ctx context.Context, cone models.Cone) ([]models.Star, error) {
	stars, err := s.fetcher.Cone(ctx, upstream.ConeRequest{
		RA:         cone.RA,
		Dec:        cone.Dec,
		Radius:     cone.Radius,
		FaintLimit: cone.FaintLimit,
		MaxCount:   cone.MaxCount,
	})
	if err != nil {
		return nil, err
	}
	return spatial.SelectCone(stars, cone), nil
}

func (s *Service) finish(kind, source string, stars []models.Star, cached bool, start time.Time) *Result {
	elapsed := time.Since(start)
	metrics.RecordQuery(kind, source, elapsed, len(stars))
	return &Result{
		Stars:   stars,
		Count:   len(stars),
		Cached:  cached,
		Source:  source,
		Elapsed: elapsed,
	}
}

// asCone returns the sky cone a cone or frustum query covers.
func asCone(q models.Query) (models.Cone, bool, error) {
	switch v := q.(type) {
	case models.Cone:
		return v, true, nil
	case models.Frustum:
		cone, err := spatial.FrustumToCone(v)
		return cone, err == nil, err
	default:
		return models.Cone{}, false, nil
	}
}

// Error categories.
const (
	CategoryInvalidInput        = "invalid_input"
	CategoryCatalogUnavailable  = "catalog_unavailable"
	CategoryUpstreamUnavailable = "upstream_unavailable"
	CategoryCanceled            = "canceled"
	CategoryInternal            = "internal"
)

// Category maps an error returned by Execute to a stable category string.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrInvalidQuery), errors.Is(err, celestial.ErrInvalidInput):
		return CategoryInvalidInput
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return CategoryCatalogUnavailable
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return CategoryUpstreamUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCanceled
	default:
		return CategoryInternal
	}
}
