// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/models"
)

// ErrUpstreamUnavailable is returned when the remote archive could not
// answer: every attempt failed, the circuit is open, or the request was
// rejected outright.
var ErrUpstreamUnavailable = errors.New("upstream archive unavailable")

// BreakerName labels the archive circuit breaker in logs and metrics.
const BreakerName = "gaia-tap"

// Fetcher guards a Provider with a concurrency bound, a rate limiter, a
// circuit breaker, and retries, applied in that order.
type Fetcher struct {
	provider Provider
	policy   RetryPolicy
	slots    *semaphore.Weighted
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker[[]models.Star]
}

// NewFetcher wraps provider using the upstream settings.
func NewFetcher(cfg *config.UpstreamConfig, provider Provider) *Fetcher {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Fetcher{
		provider: provider,
		policy:   PolicyFromConfig(cfg),
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:  rate.NewLimiter(limit, burst),
		cb:       newBreaker(cfg),
	}
}

func newBreaker(cfg *config.UpstreamConfig) *gobreaker.CircuitBreaker[[]models.Star] {
	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(0) // 0 = closed

	minRequests := cfg.BreakerMinRequests
	failureRatio := cfg.BreakerFailureRatio

	return gobreaker.NewCircuitBreaker[[]models.Star](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: cfg.BreakerMaxRequests, // Probes allowed in half-open state
		Interval:    cfg.BreakerInterval,    // Count reset period while closed
		Timeout:     cfg.BreakerTimeout,     // Open period before probing

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}

			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := ratio >= failureRatio

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		// Rejected queries and abandoned requests say nothing about archive health.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.RecordBreakerTransition(name, fromStr, toStr, stateToFloat(to))
		},
	})
}

// Cone fetches a cone search from the archive. Any failure other than the
// caller's own cancellation is wrapped in ErrUpstreamUnavailable.
func (f *Fetcher) Cone(ctx context.Context, req ConeRequest) ([]models.Star, error) {
	if err := f.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.slots.Release(1)

	stars, err := Retry(ctx, f.policy, func(attemptCtx context.Context) ([]models.Star, error) {
		if err := f.limiter.Wait(attemptCtx); err != nil {
			return nil, err
		}
		return f.execute(attemptCtx, req)
	})
	if err == nil {
		metrics.UpstreamAttempts.WithLabelValues("success").Inc()
		return stars, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	result := "exhausted"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case IsPermanent(err):
		result = "permanent"
	}
	metrics.UpstreamAttempts.WithLabelValues(result).Inc()
	logger := logging.WithComponent("upstream")
	logger.Warn().Err(err).Str("result", result).
		Float64("ra", req.RA).Float64("dec", req.Dec).Float64("radius", req.Radius).
		Msg("Archive cone search failed")

	return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

// execute runs one attempt through the circuit breaker. A rejection by the
// breaker is permanent for this request.
func (f *Fetcher) execute(ctx context.Context, req ConeRequest) ([]models.Star, error) {
	start := time.Now()
	stars, err := f.cb.Execute(func() ([]models.Star, error) {
		return f.provider.Cone(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, Permanent(err)
	}
	metrics.UpstreamRequestDuration.Observe(time.Since(start).Seconds())
	return stars, err
}

// BreakerState returns the circuit breaker state as closed, half-open or open.
func (f *Fetcher) BreakerState() string {
	return stateToString(f.cb.State())
}

// stateToString converts circuit breaker state to string for logging and metrics
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts circuit breaker state to float64 for Prometheus gauge
// 0 = closed, 1 = half-open, 2 = open
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
