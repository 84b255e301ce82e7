// Starfield - Star Catalog Spatial Query and Caching Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/starfield

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBadgerStorePutGet(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	rec := Record{CreatedAt: epoch, Value: []byte(`[{"source_id":"1"}]`)}
	if err := store.Put(ctx, "k1", rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
	}
	if string(got.Value) != string(rec.Value) {
		t.Errorf("Value = %s, want %s", got.Value, rec.Value)
	}
}

func TestBadgerStoreLastWriteWins(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	newer := Record{CreatedAt: epoch.Add(time.Minute), Value: []byte(`"newer"`)}
	older := Record{CreatedAt: epoch, Value: []byte(`"older"`)}

	if err := store.Put(ctx, "k", newer); err != nil {
		t.Fatalf("Put(newer) error = %v", err)
	}
	if err := store.Put(ctx, "k", older); err != nil {
		t.Fatalf("Put(older) error = %v", err)
	}

	got, _, _ := store.Get(ctx, "k")
	if string(got.Value) != `"newer"` {
		t.Errorf("Value = %s, want the newer write", got.Value)
	}

	// Replacing with a newer write must not leave the old index behind.
	newest := Record{CreatedAt: epoch.Add(2 * time.Minute), Value: []byte(`"newest"`)}
	if err := store.Put(ctx, "k", newest); err != nil {
		t.Fatalf("Put(newest) error = %v", err)
	}
	n, err := store.DeleteOlderThan(ctx, epoch.Add(90*time.Second))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 0 {
		t.Errorf("DeleteOlderThan() removed %d, want 0", n)
	}
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Error("newest record was removed by a stale index entry")
	}
}

func TestBadgerStoreDeleteOlderThan(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c", "d"} {
		rec := Record{CreatedAt: epoch.Add(time.Duration(i) * time.Hour), Value: []byte(`1`)}
		if err := store.Put(ctx, key, rec); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	// Cutoff is inclusive: b was created exactly at epoch+1h.
	n, err := store.DeleteOlderThan(ctx, epoch.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}

	for key, want := range map[string]bool{"a": false, "b": false, "c": true, "d": true} {
		if _, found, _ := store.Get(ctx, key); found != want {
			t.Errorf("%s present = %v, want %v", key, found, want)
		}
	}
	if count, _ := store.Count(ctx); count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestBadgerStoreDeleteAndClear(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "never-written"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	for _, key := range []string{"x", "y", "z"} {
		_ = store.Put(ctx, key, Record{CreatedAt: epoch, Value: []byte(`null`)})
	}
	if err := store.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count, _ := store.Count(ctx); count != 2 {
		t.Errorf("Count() after delete = %d, want 2", count)
	}

	n, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() removed %d, want 2", n)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Errorf("Count() after clear = %d, want 0", count)
	}
}

func TestBadgerStoreDeleteIfCreatedAt(t *testing.T) {
	tests := []struct {
		name        string
		stored      time.Time
		expected    time.Time
		wantRemoved bool
	}{
		{name: "matching timestamp", stored: epoch, expected: epoch, wantRemoved: true},
		{name: "record rewritten later", stored: epoch.Add(time.Minute), expected: epoch},
		{name: "record older than expected", stored: epoch, expected: epoch.Add(time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestBadger(t)
			ctx := context.Background()
			if err := store.Put(ctx, "k", Record{CreatedAt: tt.stored, Value: []byte(`1`)}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			removed, err := store.DeleteIfCreatedAt(ctx, "k", tt.expected)
			if err != nil {
				t.Fatalf("DeleteIfCreatedAt() error = %v", err)
			}
			if removed != tt.wantRemoved {
				t.Errorf("DeleteIfCreatedAt() = %v, want %v", removed, tt.wantRemoved)
			}
			if _, found, _ := store.Get(ctx, "k"); found == tt.wantRemoved {
				t.Errorf("record present = %v after removed = %v", found, removed)
			}

			// The time index must agree with the entry.
			n, _ := store.DeleteOlderThan(ctx, epoch.Add(time.Hour))
			want := 1
			if tt.wantRemoved {
				want = 0
			}
			if n != want {
				t.Errorf("DeleteOlderThan() removed %d, want %d", n, want)
			}
		})
	}

	t.Run("missing key", func(t *testing.T) {
		store := newTestBadger(t)
		removed, err := store.DeleteIfCreatedAt(context.Background(), "absent", epoch)
		if err != nil || removed {
			t.Errorf("DeleteIfCreatedAt(absent) = %v, %v", removed, err)
		}
	})
}

func TestBadgerStoreCorruptRecord(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	err := store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey("bad"), []byte("not json"))
	})
	if err != nil {
		t.Fatalf("seeding corrupt record: %v", err)
	}

	if _, _, err := store.Get(ctx, "bad"); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("Get() error = %v, want ErrCorruptRecord", err)
	}

	// A corrupt record can still be overwritten and deleted.
	if err := store.Put(ctx, "bad", Record{CreatedAt: epoch, Value: []byte(`1`)}); err != nil {
		t.Fatalf("Put() over corrupt record error = %v", err)
	}
	if _, found, err := store.Get(ctx, "bad"); err != nil || !found {
		t.Errorf("Get() after overwrite = found %v, err %v", found, err)
	}
}

func TestBadgerStoreClosed(t *testing.T) {
	store, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, _, err := store.Get(context.Background(), "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get() error = %v, want ErrStoreClosed", err)
	}
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := store.Put(ctx, "persisted", Record{CreatedAt: epoch, Value: []byte(`[]`)}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, found, err := reopened.Get(ctx, "persisted"); err != nil || !found {
		t.Errorf("Get() after reopen = found %v, err %v", found, err)
	}
}

func TestParseTimeKey(t *testing.T) {
	ts, key, ok := parseTimeKey(timeKey(1234567890, "abc"))
	if !ok || ts != 1234567890 || key != "abc" {
		t.Errorf("parseTimeKey() = %d, %q, %v", ts, key, ok)
	}
	if _, _, ok := parseTimeKey([]byte("qc/t/garbage")); ok {
		t.Error("parseTimeKey() accepted a key without separator")
	}
}
