// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/starfield/internal/logging"
)

// ErrCorruptRecord is returned when a durable record cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt cache record")

// ErrStoreClosed is returned by operations on a closed durable store.
var ErrStoreClosed = errors.New("durable store closed")

// Record is one durable cache entry. Value holds a JSON document.
type Record struct {
	CreatedAt time.Time
	Value     []byte
}

// DurableStore is the persistent cache tier. Implementations must be safe
// for concurrent use.
type DurableStore interface {
	// Put stores rec under key unless a record with a later CreatedAt is
	// already present (last write wins by timestamp).
	Put(ctx context.Context, key string, rec Record) error

	// Get returns the record for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (rec Record, found bool, err error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteIfCreatedAt removes key only while its record still carries
	// createdAt, so a newer concurrent write survives. It reports whether a
	// record was removed.
	DeleteIfCreatedAt(ctx context.Context, key string, createdAt time.Time) (bool, error)

	// DeleteOlderThan removes every record created at or before cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Clear removes every record and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	Close() error
}

// Badger keyspace:
//
//	qc/e/<key>               -> envelope {created_at, value}
//	qc/t/<20-digit ns>/<key> -> empty (time index, ordered oldest first)
const (
	keyRoot        = "qc/"
	entryKeyPrefix = keyRoot + "e/"
	timeKeyPrefix  = keyRoot + "t/"

	deleteChunkSize    = 256
	maxConflictRetry   = 3
	badgerGCRatio      = 0.5
	badgerCloseTimeout = 30 * time.Second
)

type envelope struct {
	CreatedAt int64           `json:"created_at"`
	Value     json.RawMessage `json:"value"`
}

// BadgerStore implements DurableStore on BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	inMemory bool
	logger   zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) a BadgerDB cache store at path. An empty
// path opens an in-memory store, which is what tests use.
func OpenBadger(path string) (*BadgerStore, error) {
	logger := logging.WithComponent("cache")

	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logger.Info().Str("path", path).Bool("in_memory", path == "").Msg("Durable cache opened")
	return &BadgerStore{db: db, inMemory: path == "", logger: logger}, nil
}

func entryKey(key string) []byte {
	return []byte(entryKeyPrefix + key)
}

func timeKey(createdAt int64, key string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", timeKeyPrefix, createdAt, key))
}

// parseTimeKey splits a time index key into its timestamp and cache key.
func parseTimeKey(k []byte) (int64, string, bool) {
	rest := bytes.TrimPrefix(k, []byte(timeKeyPrefix))
	i := bytes.IndexByte(rest, '/')
	if i < 0 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(string(rest[:i]), 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, string(rest[i+1:]), true
}

func decodeEnvelope(val []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(val, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if env.CreatedAt <= 0 {
		return envelope{}, fmt.Errorf("%w: missing timestamp", ErrCorruptRecord)
	}
	return env, nil
}

// readEnvelope loads and decodes the entry for key inside txn.
func readEnvelope(txn *badger.Txn, key string) (envelope, bool, error) {
	item, err := txn.Get(entryKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return envelope{}, false, nil
	}
	if err != nil {
		return envelope{}, false, err
	}

	var env envelope
	err = item.Value(func(val []byte) error {
		var decodeErr error
		env, decodeErr = decodeEnvelope(val)
		return decodeErr
	})
	if err != nil {
		return envelope{}, true, err
	}
	return env, true, nil
}

func (s *BadgerStore) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts with
// concurrent writers to the same keys.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetry; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Put implements DurableStore.
func (s *BadgerStore) Put(ctx context.Context, key string, rec Record) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{CreatedAt: rec.CreatedAt.UnixNano(), Value: rec.Value})
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}
	createdAt := rec.CreatedAt.UnixNano()

	return s.update(func(txn *badger.Txn) error {
		old, found, err := readEnvelope(txn, key)
		switch {
		case err != nil && !errors.Is(err, ErrCorruptRecord):
			return fmt.Errorf("get cache record: %w", err)
		case found && err == nil:
			if old.CreatedAt > createdAt {
				return nil
			}
			if err := txn.Delete(timeKey(old.CreatedAt, key)); err != nil {
				return fmt.Errorf("delete time index: %w", err)
			}
		}

		if err := txn.Set(entryKey(key), data); err != nil {
			return fmt.Errorf("set cache record: %w", err)
		}
		if err := txn.Set(timeKey(createdAt, key), nil); err != nil {
			return fmt.Errorf("set time index: %w", err)
		}
		return nil
	})
}

// Get implements DurableStore.
func (s *BadgerStore) Get(ctx context.Context, key string) (Record, bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return Record{}, false, err
	}

	var (
		env   envelope
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		env, found, err = readEnvelope(txn, key)
		return err
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("get cache record: %w", err)
	}
	if !found {
		return Record{}, false, nil
	}
	return Record{CreatedAt: time.Unix(0, env.CreatedAt), Value: env.Value}, true, nil
}

// Delete implements DurableStore.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		env, found, err := readEnvelope(txn, key)
		if err != nil && !errors.Is(err, ErrCorruptRecord) {
			return fmt.Errorf("get cache record: %w", err)
		}
		if !found {
			return nil
		}
		if err == nil {
			if err := txn.Delete(timeKey(env.CreatedAt, key)); err != nil {
				return fmt.Errorf("delete time index: %w", err)
			}
		}
		if err := txn.Delete(entryKey(key)); err != nil {
			return fmt.Errorf("delete cache record: %w", err)
		}
		return nil
	})
}

// DeleteIfCreatedAt implements DurableStore.
func (s *BadgerStore) DeleteIfCreatedAt(ctx context.Context, key string, createdAt time.Time) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}
	ts := createdAt.UnixNano()

	removed := false
	err := s.update(func(txn *badger.Txn) error {
		removed = false
		env, found, err := readEnvelope(txn, key)
		if err != nil && !errors.Is(err, ErrCorruptRecord) {
			return fmt.Errorf("get cache record: %w", err)
		}
		if !found || err != nil || env.CreatedAt != ts {
			return nil
		}
		if err := txn.Delete(timeKey(ts, key)); err != nil {
			return fmt.Errorf("delete time index: %w", err)
		}
		if err := txn.Delete(entryKey(key)); err != nil {
			return fmt.Errorf("delete cache record: %w", err)
		}
		removed = true
		return nil
	})
	return removed, err
}

// DeleteOlderThan implements DurableStore. It walks the time index from the
// oldest entry and stops at the first one newer than cutoff.
func (s *BadgerStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	limit := cutoff.UnixNano()

	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(timeKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			ts, _, ok := parseTimeKey(k)
			if ok && ts > limit {
				break
			}
			expired = append(expired, k)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan time index: %w", err)
	}

	removed := 0
	for start := 0; start < len(expired); start += deleteChunkSize {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		chunk := expired[start:min(start+deleteChunkSize, len(expired))]

		n := 0
		err := s.update(func(txn *badger.Txn) error {
			n = 0
			for _, idx := range chunk {
				ts, key, ok := parseTimeKey(idx)
				if ok {
					// A newer Put moves the entry to a new index key; only
					// remove the entry if this index key still describes it.
					env, found, err := readEnvelope(txn, key)
					if err != nil && !errors.Is(err, ErrCorruptRecord) {
						return err
					}
					if found && (err != nil || env.CreatedAt == ts) {
						if err := txn.Delete(entryKey(key)); err != nil {
							return err
						}
						n++
					}
				}
				if err := txn.Delete(idx); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("delete expired records: %w", err)
		}
		removed += n
	}

	if removed > 0 {
		s.runGC()
	}
	return removed, nil
}

// Count implements DurableStore.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(entryKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Clear implements DurableStore.
func (s *BadgerStore) Clear(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.DropPrefix([]byte(keyRoot)); err != nil {
		return 0, fmt.Errorf("drop cache records: %w", err)
	}
	return n, nil
}

// runGC reclaims value log space after large deletions.
func (s *BadgerStore) runGC() {
	if s.inMemory {
		return
	}
	for {
		err := s.db.RunValueLogGC(badgerGCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return
		}
		if err != nil {
			s.logger.Debug().Err(err).Msg("Value log GC stopped")
			return
		}
	}
}

// Close closes the database. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		s.logger.Info().Msg("Durable cache closed")
		return nil
	case <-time.After(badgerCloseTimeout):
		return fmt.Errorf("badgerdb close timeout after %v", badgerCloseTimeout)
	}
}

// badgerLogger routes BadgerDB's internal logging through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Str("source", "badger").Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Str("source", "badger").Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Str("source", "badger").Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Str("source", "badger").Msgf(format, args...)
}
