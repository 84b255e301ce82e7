// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package upstream

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/starfield/internal/celestial"
	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/models"
)

// maxErrorBodySize limits how much of a failed response is kept for the error.
const maxErrorBodySize = 4 * 1024

// ConeRequest is a cone search against the remote archive.
type ConeRequest struct {
	RA         float64
	Dec        float64
	Radius     float64
	FaintLimit float64
	MaxCount   int
}

// Provider runs cone searches against a remote star archive.
type Provider interface {
	Cone(ctx context.Context, req ConeRequest) ([]models.Star, error)
}

// HTTPError is a non-200 response from the archive.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("archive returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// TAPClient queries an IVOA TAP synchronous endpoint with ADQL.
type TAPClient struct {
	baseURL string
	maxRows int
	client  *http.Client
}

// NewTAPClient creates a TAP client. A nil httpClient uses a client without
// an overall timeout; per-attempt deadlines come from the caller's context.
func NewTAPClient(cfg *config.UpstreamConfig, httpClient *http.Client) *TAPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = models.MaxResultCount
	}
	return &TAPClient{
		baseURL: strings.TrimRight(cfg.TAPURL, "/"),
		maxRows: maxRows,
		client:  httpClient,
	}
}

// Cone runs a cone search. Server overload (429, 5xx) and transport errors
// are returned as-is for Retry; any other failure is Permanent.
func (c *TAPClient) Cone(ctx context.Context, req ConeRequest) ([]models.Star, error) {
	top := req.MaxCount
	if top <= 0 || top > c.maxRows {
		top = c.maxRows
	}

	form := url.Values{}
	form.Set("REQUEST", "doQuery")
	form.Set("LANG", "ADQL")
	form.Set("FORMAT", "json")
	form.Set("QUERY", BuildConeADQL(req, top))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to build archive request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("archive request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: readBodyForError(resp.Body)}
		if httpErr.Retryable() {
			return nil, httpErr
		}
		return nil, Permanent(httpErr)
	}

	stars, err := decodeTAPResult(resp.Body)
	if err != nil {
		return nil, Permanent(err)
	}
	return stars, nil
}

// BuildConeADQL renders the Gaia DR3 cone search, brightest first.
func BuildConeADQL(req ConeRequest, top int) string {
	var b strings.Builder
	b.WriteString("SELECT TOP ")
	b.WriteString(strconv.Itoa(top))
	b.WriteString(" source_id, ra, dec, parallax, pmra, pmdec, phot_g_mean_mag, bp_rp, radial_velocity, teff_gspphot AS temperature")
	b.WriteString(" FROM gaiadr3.gaia_source")
	b.WriteString(" WHERE 1=CONTAINS(POINT('ICRS', ra, dec), CIRCLE('ICRS', ")
	b.WriteString(formatFloat(req.RA))
	b.WriteString(", ")
	b.WriteString(formatFloat(req.Dec))
	b.WriteString(", ")
	b.WriteString(formatFloat(req.Radius))
	b.WriteString("))")
	b.WriteString(" AND phot_g_mean_mag < ")
	b.WriteString(formatFloat(req.FaintLimit))
	b.WriteString(" ORDER BY phot_g_mean_mag ASC")
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// tapResult is the TAP "json" output format: column metadata plus rows.
type tapResult struct {
	Metadata []struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Data [][]any `json:"data"`
}

// decodeTAPResult converts a TAP JSON body into stars. Numbers are decoded
// as json.Number so 64-bit source IDs keep every digit. Rows that cannot be
// turned into a star are skipped.
func decodeTAPResult(r io.Reader) ([]models.Star, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var result tapResult
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode archive response: %w", err)
	}

	columns := make(map[string]int, len(result.Metadata))
	for i, col := range result.Metadata {
		columns[strings.ToLower(col.Name)] = i
	}
	for _, required := range []string{"source_id", "ra", "dec", "phot_g_mean_mag"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("archive response is missing column %q", required)
		}
	}

	logger := logging.WithComponent("upstream")
	stars := make([]models.Star, 0, len(result.Data))
	for i, row := range result.Data {
		star, err := rowToStar(columns, row)
		if err != nil {
			logger.Warn().Err(err).Int("row", i).Msg("Skipping archive row")
			continue
		}
		stars = append(stars, star)
	}
	return stars, nil
}

func rowToStar(columns map[string]int, row []any) (models.Star, error) {
	cell := func(name string) any {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return nil
		}
		return row[idx]
	}

	sourceID, err := sourceIDString(cell("source_id"))
	if err != nil {
		return models.Star{}, err
	}
	ra, err := requiredFloat("ra", cell("ra"))
	if err != nil {
		return models.Star{}, err
	}
	dec, err := requiredFloat("dec", cell("dec"))
	if err != nil {
		return models.Star{}, err
	}
	mag, err := requiredFloat("phot_g_mean_mag", cell("phot_g_mean_mag"))
	if err != nil {
		return models.Star{}, err
	}

	obs := models.Observation{
		SourceID:       sourceID,
		RA:             celestial.NormalizeRA(ra),
		Dec:            dec,
		Parallax:       optionalFloat(cell("parallax")),
		Magnitude:      mag,
		ColorBPRP:      optionalFloat(cell("bp_rp")),
		PMRA:           optionalFloat(cell("pmra")),
		PMDec:          optionalFloat(cell("pmdec")),
		RadialVelocity: optionalFloat(cell("radial_velocity")),
		Temperature:    optionalFloat(cell("temperature")),
	}
	if obs.Parallax == nil || *obs.Parallax <= 0 {
		estimate := celestial.MagnitudeDistanceEstimate(mag)
		obs.DistancePC = &estimate
	}

	return models.NewStar(obs)
}

func sourceIDString(v any) (string, error) {
	switch id := v.(type) {
	case json.Number:
		return id.String(), nil
	case string:
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("missing or malformed source_id %v", v)
}

func requiredFloat(name string, v any) (float64, error) {
	f := optionalFloat(v)
	if f == nil {
		return 0, fmt.Errorf("missing or malformed %s %v", name, v)
	}
	return *f, nil
}

func optionalFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// readBodyForError reads at most maxErrorBodySize bytes of a failed response.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}
