// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/starfield/internal/metrics"
)

func newInstrumentedRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Use(AccessLog)
	r.Get("/widgets/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Post("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestPrometheusMetrics(t *testing.T) {
	router := newInstrumentedRouter()

	tests := []struct {
		name     string
		method   string
		path     string
		endpoint string
		status   string
	}{
		{"route pattern label", http.MethodGet, "/widgets/42", "/widgets/{id}", "418"},
		{"server error", http.MethodPost, "/fail", "/fail", "500"},
		{"unmatched path", http.MethodGet, "/no/such/thing", unmatchedRoute, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := metrics.APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.status)
			before := testutil.ToFloat64(counter)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if got := strconv.Itoa(rec.Code); got != tt.status {
				t.Errorf("status = %s, want %s", got, tt.status)
			}
			if delta := testutil.ToFloat64(counter) - before; delta != 1 {
				t.Errorf("counter delta = %v, want 1", delta)
			}
		})
	}

	if active := testutil.ToFloat64(metrics.APIActiveRequests); active != 0 {
		t.Errorf("active requests = %v after all requests finished", active)
	}
}
