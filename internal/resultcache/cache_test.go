package resultcache

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/datastore"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// fakeStore is an in-memory datastore.Interface that counts calls
type fakeStore struct {
	rows      map[string]*datastore.ImageLog
	lookups   atomic.Int32
	inserts   atomic.Int32
	lookupErr error
	insertErr error
	delay     time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*datastore.ImageLog)}
}

func (f *fakeStore) Open() error { return nil }

func (f *fakeStore) Lookup(ctx context.Context, hash string) (*datastore.ImageLog, error) {
	f.lookups.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.rows[hash], nil
}

func (f *fakeStore) Insert(_ context.Context, row *datastore.ImageLog) error {
	f.inserts.Add(1)
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.rows[row.ImageHash]; !ok {
		f.rows[row.ImageHash] = row
	}
	return nil
}

func (f *fakeStore) Count(context.Context) (int64, error) { return int64(len(f.rows)), nil }
func (f *fakeStore) Ping(context.Context) error           { return f.lookupErr }
func (f *fakeStore) Close() error                         { return nil }
func (f *fakeStore) Name() string                         { return "fake" }

func newCacheMetrics(t *testing.T) *metrics.CacheMetrics {
	t.Helper()
	m, err := metrics.NewCacheMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestLookupMissAndHitThroughStore(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	m := newCacheMetrics(t)
	c := New(Options{Store: store, Timeout: time.Second, Metrics: m})

	_, ok, err := c.Lookup(t.Context(), "aa")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "aa", SourceURL: "u", IsDog: true, BreedLabel: 5}))

	rec, ok, err := c.Lookup(t.Context(), "aa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Record{Fingerprint: "aa", SourceURL: "u", IsDog: true, BreedLabel: 5}, rec)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.CacheOpLookup, metrics.CacheResultMiss)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.CacheOpLookup, metrics.CacheResultHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.CacheOpInsert, metrics.CacheResultOK)), 0)
}

func TestNegativeRecordHasNoLabel(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	c := New(Options{Store: store})

	require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "cat", IsDog: false, BreedLabel: 99}))
	assert.Nil(t, store.rows["cat"].BreedLabel)

	rec, ok, err := c.Lookup(t.Context(), "cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, rec.IsDog)
	assert.Zero(t, rec.BreedLabel)
}

func TestMemoryTierShortCircuitsStore(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	label := 8
	store.rows["bb"] = &datastore.ImageLog{ImageHash: "bb", IsDog: true, BreedLabel: &label}
	c := New(Options{Store: store, Memory: true, MemoryTTL: time.Minute})

	for range 3 {
		rec, ok, err := c.Lookup(t.Context(), "bb")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 8, rec.BreedLabel)
	}
	assert.Equal(t, int32(1), store.lookups.Load(), "store consulted only on the first lookup")
	assert.Equal(t, "fake+memory", c.Backend())
}

func TestMemoryOnly(t *testing.T) {
	t.Parallel()

	c := New(Options{Memory: true})
	assert.Equal(t, "memory", c.Backend())

	require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "cc", IsDog: true, BreedLabel: 1}))
	require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "cc", IsDog: true, BreedLabel: 2}))

	rec, ok, err := c.Lookup(t.Context(), "cc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rec.BreedLabel, "first outcome wins")
	require.NoError(t, c.Close())
}

func TestNoTiers(t *testing.T) {
	t.Parallel()

	c := New(Options{})
	assert.Equal(t, "none", c.Backend())
	require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "dd", IsDog: true}))

	_, ok, err := c.Lookup(t.Context(), "dd")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Ping(t.Context()))
}

func TestStoreErrorsAreReported(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.lookupErr = errors.New("connection refused")
	store.insertErr = errors.New("read-only transaction")
	m := newCacheMetrics(t)
	c := New(Options{Store: store, Metrics: m})

	_, ok, err := c.Lookup(t.Context(), "ee")
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, store.lookupErr)

	err = c.Insert(t.Context(), Record{Fingerprint: "ee", IsDog: true, BreedLabel: 1})
	require.ErrorIs(t, err, store.insertErr)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.CacheOpLookup, metrics.CacheResultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Operations.WithLabelValues(metrics.CacheOpInsert, metrics.CacheResultError)), 0)
}

func TestLookupTimeout(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.delay = time.Second
	c := New(Options{Store: store, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, _, err := c.Lookup(t.Context(), "ff")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDogRowWithoutLabelIsMiss(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.rows["gg"] = &datastore.ImageLog{ImageHash: "gg", IsDog: true}
	c := New(Options{Store: store})

	_, ok, err := c.Lookup(t.Context(), "gg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		settings := &conf.Settings{Cache: conf.CacheSettings{
			Backend: conf.CacheBackendSQLite,
			Timeout: time.Second,
			SQLite:  conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "cache.db")},
			Memory:  conf.MemorySettings{Enabled: true, TTL: time.Minute},
		}}
		c, err := FromSettings(settings, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })

		assert.Equal(t, "sqlite+memory", c.Backend())
		require.NoError(t, c.Insert(t.Context(), Record{Fingerprint: "hh", IsDog: true, BreedLabel: 4}))
		require.NoError(t, c.Ping(t.Context()))
	})

	t.Run("memory backend forces memory tier", func(t *testing.T) {
		t.Parallel()
		c, err := FromSettings(&conf.Settings{Cache: conf.CacheSettings{Backend: "memory"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "memory", c.Backend())
	})

	t.Run("none disables memory", func(t *testing.T) {
		t.Parallel()
		c, err := FromSettings(&conf.Settings{Cache: conf.CacheSettings{
			Backend: "none",
			Memory:  conf.MemorySettings{Enabled: true},
		}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "none", c.Backend())
	})
}
