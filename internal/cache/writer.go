// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/starfield/internal/metrics"
	"github.com/tomtom215/starfield/internal/models"
)

// Write-behind defaults.
const (
	DefaultWriteQueueSize = 256
	DefaultWriteWorkers   = 2
	writeTimeout          = 10 * time.Second
)

type writeJob struct {
	key       string
	stars     []models.Star
	createdAt time.Time
}

// writeBehind moves durable writes off the request path. Jobs go into a
// bounded queue drained by a fixed set of workers; when the queue is full
// the job is dropped, since the volatile tier already holds the value.
type writeBehind struct {
	store  DurableStore
	logger zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	jobs    chan writeJob
	workers sync.WaitGroup

	// pending counts accepted jobs not yet written; idle is closed
	// whenever it drops to zero.
	pendingMu sync.Mutex
	pending   int
	idle      chan struct{}
}

func newWriteBehind(store DurableStore, queueSize, workers int, logger zerolog.Logger) *writeBehind {
	if queueSize <= 0 {
		queueSize = DefaultWriteQueueSize
	}
	if workers <= 0 {
		workers = DefaultWriteWorkers
	}

	w := &writeBehind{
		store:  store,
		logger: logger,
		jobs:   make(chan writeJob, queueSize),
		idle:   make(chan struct{}),
	}
	close(w.idle)
	for i := 0; i < workers; i++ {
		w.workers.Add(1)
		go w.run()
	}
	return w
}

// enqueue schedules a durable write without blocking. It reports whether
// the job was accepted.
func (w *writeBehind) enqueue(job writeJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}

	w.addPending()
	select {
	case w.jobs <- job:
		return true
	default:
		w.donePending()
		metrics.CacheWriteDropped.Inc()
		w.logger.Debug().Str("key", keyPrefix(job.key)).Msg("Durable write queue full, dropping write")
		return false
	}
}

func (w *writeBehind) run() {
	defer w.workers.Done()
	for job := range w.jobs {
		w.write(job)
		w.donePending()
	}
}

func (w *writeBehind) addPending() {
	w.pendingMu.Lock()
	if w.pending == 0 {
		w.idle = make(chan struct{})
	}
	w.pending++
	w.pendingMu.Unlock()
}

func (w *writeBehind) donePending() {
	w.pendingMu.Lock()
	w.pending--
	if w.pending == 0 {
		close(w.idle)
	}
	w.pendingMu.Unlock()
}

func (w *writeBehind) write(job writeJob) {
	value, err := json.Marshal(job.stars)
	if err != nil {
		metrics.CacheDurableErrors.WithLabelValues("put").Inc()
		w.logger.Warn().Err(err).Str("key", keyPrefix(job.key)).Msg("Failed to encode cache value")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := w.store.Put(ctx, job.key, Record{CreatedAt: job.createdAt, Value: value}); err != nil {
		metrics.CacheDurableErrors.WithLabelValues("put").Inc()
		w.logger.Warn().Err(err).Str("key", keyPrefix(job.key)).Msg("Durable cache write failed")
	}
}

// flush waits until every accepted job has been written or ctx ends.
func (w *writeBehind) flush(ctx context.Context) error {
	w.pendingMu.Lock()
	idle := w.idle
	w.pendingMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs and waits for the workers to drain the queue.
func (w *writeBehind) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()

	w.workers.Wait()
}

// keyPrefix shortens a key for log output.
func keyPrefix(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
