// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/starfield/internal/models"
)

// CanonicalKey derives the cache key for a query.
//
// Each parameter is rounded half away from zero to its field precision, so
// requests that differ only below that precision share an entry. Fields are
// sorted by name and joined as "kind|name=value|..." before hashing, which
// makes the key independent of field order. The result is a 64 character
// lowercase SHA-256 hex digest.
func CanonicalKey(q models.Query) string {
	fields := q.CanonicalFields()
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})

	var b strings.Builder
	b.WriteString(string(q.Kind()))
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(formatRounded(f.Value, f.Precision))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// formatRounded renders v rounded to precision decimal places.
func formatRounded(v float64, precision int) string {
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // -0 and 0 must hash the same
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}
