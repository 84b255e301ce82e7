// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/starfield/internal/models"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stars (
		source_id VARCHAR PRIMARY KEY,
		ra DOUBLE NOT NULL,
		"dec" DOUBLE NOT NULL,
		x DOUBLE NOT NULL,
		y DOUBLE NOT NULL,
		z DOUBLE NOT NULL,
		parallax DOUBLE,
		distance_pc DOUBLE NOT NULL,
		magnitude DOUBLE NOT NULL,
		bp_rp DOUBLE,
		pmra DOUBLE,
		pmdec DOUBLE,
		radial_velocity DOUBLE,
		temperature DOUBLE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stars_magnitude ON stars (magnitude)`,
	`CREATE INDEX IF NOT EXISTS idx_stars_radec ON stars (ra, "dec")`,
	`CREATE INDEX IF NOT EXISTS idx_stars_xyz ON stars (x, y, z)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// InsertStars writes stars into a writable (in-memory) catalog in a single
// transaction. Production catalogs are built offline and opened read-only,
// so this fails against a catalog file.
func (db *DB) InsertStars(ctx context.Context, stars []models.Star) error {
	if db.conn == nil {
		return db.unavailableErr()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stars (`+starColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range stars {
		s := &stars[i]
		if _, err := stmt.ExecContext(ctx,
			s.SourceID, s.RA, s.Dec, s.X, s.Y, s.Z,
			nullFloat(s.Parallax), s.DistancePC, s.Magnitude, nullFloat(s.ColorBPRP),
			nullFloat(s.PMRA), nullFloat(s.PMDec), nullFloat(s.RadialVelocity), nullFloat(s.Temperature),
		); err != nil {
			return fmt.Errorf("failed to insert star %s: %w", s.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stars: %w", err)
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
