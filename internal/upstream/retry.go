// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package upstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/starfield/internal/config"
	"github.com/tomtom215/starfield/internal/logging"
	"github.com/tomtom215/starfield/internal/metrics"
)

// ErrRetriesExhausted is wrapped around the last error once every attempt
// has failed.
var ErrRetriesExhausted = errors.New("max retry attempts reached")

// RetryPolicy controls how Retry spaces and bounds attempts.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	AttemptTimeout time.Duration // 0 = no per-attempt deadline
}

// DefaultRetryPolicy returns 3 attempts spaced 2s then 4s, capped at 10s,
// with a 60s deadline on each attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      2 * time.Second,
		Multiplier:     2,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 60 * time.Second,
	}
}

// PolicyFromConfig builds a RetryPolicy from upstream settings.
func PolicyFromConfig(cfg *config.UpstreamConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		Multiplier:     cfg.Multiplier,
		MaxDelay:       cfg.MaxDelay,
		AttemptTimeout: cfg.AttemptTimeout,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// permanentError marks an error that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

// Retry runs op until it succeeds, returns a Permanent error, the context
// ends, or the policy's attempts are used up. Each attempt gets its own
// deadline derived from ctx when AttemptTimeout is set.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, policy.AttemptTimeout, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return zero, err
		}
		// The caller gave up; the attempt's failure is a consequence of that.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		if attempt < attempts {
			delay := policy.Delay(attempt)
			metrics.UpstreamAttempts.WithLabelValues("retry").Inc()
			logging.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Dur("delay", delay).Msg("Retry attempt")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}
