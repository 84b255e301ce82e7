// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/models"
)

const memoryPath = ":memory:"

const starColumns = `source_id, ra, "dec", x, y, z, parallax, distance_pc, magnitude, bp_rp, pmra, pmdec, radial_velocity, temperature`

// DB wraps the DuckDB connection holding the star catalog.
//
// A catalog file is opened read-only. An in-memory catalog (":memory:") is
// opened read-write so that tests and development seeding can populate it.
// When the file is missing or cannot be opened, DB is still returned and
// every query fails with ErrCatalogUnavailable.
type DB struct {
	conn   *sql.DB
	cfg    *config.CatalogConfig
	logger zerolog.Logger
	reason error
}

// New opens the catalog described by cfg.
func New(cfg *config.CatalogConfig) (*DB, error) {
	db := &DB{
		cfg:    cfg,
		logger: logging.WithComponent("catalog"),
	}

	inMemory := cfg.Path == memoryPath
	if !inMemory {
		if _, err := os.Stat(cfg.Path); err != nil {
			db.reason = fmt.Errorf("catalog file %s: %w", cfg.Path, err)
			db.logger.Warn().Err(err).Str("path", cfg.Path).Msg("Star catalog not found, local queries will return no results")
			return db, nil
		}
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	accessMode := "read_only"
	if inMemory {
		accessMode = "read_write"
	}

	connStr := fmt.Sprintf("%s?access_mode=%s&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, accessMode, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		db.reason = err
		db.logger.Warn().Err(err).Str("path", cfg.Path).Msg("Failed to open star catalog")
		return db, nil
	}
	configureConnectionPool(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		db.reason = err
		db.logger.Warn().Err(err).Str("path", cfg.Path).Msg("Star catalog is not readable")
		return db, nil
	}
	db.conn = conn

	if inMemory {
		if err := db.createSchema(ctx); err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("failed to create catalog schema: %w", err)
		}
		if cfg.SeedSample {
			if err := Seed(ctx, db, cfg.SeedCount, 42); err != nil {
				closeQuietly(db)
				return nil, fmt.Errorf("failed to seed sample catalog: %w", err)
			}
		}
	}

	if n, err := db.Count(ctx); err == nil {
		db.logger.Info().Str("path", cfg.Path).Int("stars", n).Msg("Star catalog opened")
	}

	return db, nil
}

func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Available reports whether the catalog was opened successfully.
func (db *DB) Available() bool {
	return db.conn != nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	err := db.conn.Close()
	db.conn = nil
	return err
}

// Ping reports whether the catalog is readable.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return db.unavailableErr()
	}
	if err := db.conn.PingContext(ctx); err != nil {
		return unavailable("ping catalog", err)
	}
	return nil
}

// Count returns the number of stars in the catalog.
func (db *DB) Count(ctx context.Context) (int, error) {
	if db.conn == nil {
		return 0, db.unavailableErr()
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM stars`).Scan(&n); err != nil {
		return 0, unavailable("count stars", err)
	}
	return n, nil
}

// ByDistanceFrom implements Store.
func (db *DB) ByDistanceFrom(ctx context.Context, origin celestial.Vector3, maxDistance, faintLimit float64, maxCount int) ([]models.Star, error) {
	if db.conn == nil {
		return nil, db.unavailableErr()
	}

	// The BETWEEN box lets DuckDB prune row groups before the exact distance test.
	query := `
		SELECT ` + starColumns + `
		FROM (
			SELECT ` + starColumns + `,
				sqrt((x - ?) * (x - ?) + (y - ?) * (y - ?) + (z - ?) * (z - ?)) AS dist
			FROM stars
			WHERE magnitude < ?
				AND x BETWEEN ? AND ?
				AND y BETWEEN ? AND ?
				AND z BETWEEN ? AND ?
		) candidates
		WHERE dist < ?
		ORDER BY dist ASC, magnitude ASC, source_id ASC
		LIMIT ` + strconv.Itoa(maxCount)

	args := []any{
		origin.X, origin.X, origin.Y, origin.Y, origin.Z, origin.Z,
		faintLimit,
		origin.X - maxDistance, origin.X + maxDistance,
		origin.Y - maxDistance, origin.Y + maxDistance,
		origin.Z - maxDistance, origin.Z + maxDistance,
		maxDistance,
	}

	return db.queryStars(ctx, "by_distance", query, args...)
}

// ByMagnitudeCeiling implements Store.
func (db *DB) ByMagnitudeCeiling(ctx context.Context, limit float64) ([]models.Star, error) {
	if db.conn == nil {
		return nil, db.unavailableErr()
	}
	query := `SELECT ` + starColumns + ` FROM stars WHERE magnitude < ? ORDER BY magnitude ASC, source_id ASC`
	return db.queryStars(ctx, "by_magnitude", query, limit)
}

// ByAngularBox implements Store.
func (db *DB) ByAngularBox(ctx context.Context, ra, dec Range) ([]models.Star, error) {
	if db.conn == nil {
		return nil, db.unavailableErr()
	}

	raClause := `ra BETWEEN ? AND ?`
	if ra.Wraps() {
		raClause = `(ra >= ? OR ra <= ?)`
	}
	query := `SELECT ` + starColumns + ` FROM stars WHERE "dec" BETWEEN ? AND ? AND ` + raClause
	return db.queryStars(ctx, "by_angular_box", query, dec.Min, dec.Max, ra.Min, ra.Max)
}

// AllStars returns the whole catalog, brightest first. It is used to build
// a MemoryStore snapshot.
func (db *DB) AllStars(ctx context.Context) ([]models.Star, error) {
	if db.conn == nil {
		return nil, db.unavailableErr()
	}
	query := `SELECT ` + starColumns + ` FROM stars ORDER BY magnitude ASC, source_id ASC`
	return db.queryStars(ctx, "all", query)
}

func (db *DB) queryStars(ctx context.Context, operation, query string, args ...any) ([]models.Star, error) {
	start := time.Now()
	defer func() {
		metrics.CatalogQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.CatalogQueryErrors.WithLabelValues(operation).Inc()
		return nil, unavailable("query stars "+operation, err)
	}
	defer closeQuietly(rows)

	stars, err := scanStars(rows)
	if err != nil {
		metrics.CatalogQueryErrors.WithLabelValues(operation).Inc()
		return nil, unavailable("scan stars "+operation, err)
	}
	return stars, nil
}

func scanStars(rows *sql.Rows) ([]models.Star, error) {
	var stars []models.Star
	for rows.Next() {
		var (
			s                                     models.Star
			parallax, bpRp, pmra, pmdec, rv, teff sql.NullFloat64
		)
		if err := rows.Scan(
			&s.SourceID, &s.RA, &s.Dec, &s.X, &s.Y, &s.Z,
			&parallax, &s.DistancePC, &s.Magnitude, &bpRp,
			&pmra, &pmdec, &rv, &teff,
		); err != nil {
			return nil, err
		}

		s.Parallax = nullable(parallax)
		s.ColorBPRP = nullable(bpRp)
		s.PMRA = nullable(pmra)
		s.PMDec = nullable(pmdec)
		s.RadialVelocity = nullable(rv)
		s.Temperature = nullable(teff)

		color := celestial.ColorIndexToRGB(s.ColorBPRP)
		s.ColorR, s.ColorG, s.ColorB = color.R, color.G, color.B

		stars = append(stars, s)
	}
	return stars, rows.Err()
}

func (db *DB) unavailableErr() error {
	if db.reason != nil {
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, db.reason)
	}
	return ErrCatalogUnavailable
}

func nullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// closeQuietly closes a resource and explicitly ignores any error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
