// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/models"
)

const (
	seedSourceIDBase = 4000000000000000000
	seedMaxDistance  = 1000.0
	seedBatchSize    = 5000
)

// GenerateSample builds n synthetic stars from a fixed seed. Positions are
// uniform on the sky and uniform in volume out to 1000 pc; magnitudes skew
// faint the way a magnitude-limited survey does.
func GenerateSample(n int, seed uint64) ([]models.Star, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	stars := make([]models.Star, 0, n)

	for i := 0; i < n; i++ {
		ra := rng.Float64() * 360
		dec := math.Asin(2*rng.Float64()-1) * 180 / math.Pi

		distance := math.Max(1, seedMaxDistance*math.Cbrt(rng.Float64()))
		parallax := 1000 / distance

		// Apparent magnitude from an absolute magnitude spread around the
		// main sequence, then the distance modulus.
		absMag := 4.8 + rng.NormFloat64()*2.5
		magnitude := math.Round((absMag+5*math.Log10(distance)-5)*100) / 100

		bpRp := math.Round((0.8+rng.NormFloat64()*0.5)*1000) / 1000
		pmra := rng.NormFloat64() * 15
		pmdec := rng.NormFloat64() * 15

		obs := models.Observation{
			SourceID:  strconv.FormatInt(seedSourceIDBase+int64(i), 10),
			RA:        ra,
			Dec:       dec,
			Parallax:  &parallax,
			Magnitude: magnitude,
			ColorBPRP: &bpRp,
			PMRA:      &pmra,
			PMDec:     &pmdec,
		}
		if rng.IntN(10) == 0 {
			rv := rng.NormFloat64() * 30
			obs.RadialVelocity = &rv
		}

		star, err := models.NewStar(obs)
		if err != nil {
			return nil, fmt.Errorf("failed to build sample star %d: %w", i, err)
		}
		stars = append(stars, star)
	}
	return stars, nil
}

// Seed populates a writable catalog with n synthetic stars.
func Seed(ctx context.Context, db *DB, n int, seed uint64) error {
	stars, err := GenerateSample(n, seed)
	if err != nil {
		return err
	}

	for start := 0; start < len(stars); start += seedBatchSize {
		end := min(start+seedBatchSize, len(stars))
		if err := db.InsertStars(ctx, stars[start:end]); err != nil {
			return err
		}
	}

	db.logger.Info().Int("stars", n).Uint64("seed", seed).Msg("Seeded sample star catalog")
	return nil
}

// WriteSample creates a catalog file at path holding n synthetic stars.
// It refuses to overwrite an existing file.
func WriteSample(ctx context.Context, path string, n int, seed uint64) error {
	if path == "" || path == memoryPath {
		return errors.New("catalog path must name a file")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("catalog file %s already exists", path)
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to create catalog %s: %w", path, err)
	}
	db := &DB{
		conn:   conn,
		cfg:    &config.CatalogConfig{Path: path},
		logger: logging.WithComponent("catalog"),
	}
	defer closeQuietly(db)

	if err := db.createSchema(ctx); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return Seed(ctx, db, n, seed)
}
