// Package resultcache remembers prediction outcomes per image fingerprint.
// An optional in-process tier fronts an optional persistent store.
package resultcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/dogbreed-go/internal/datastore"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// Record is the cached outcome for one image fingerprint. BreedLabel is
// meaningful only when IsDog is true.
type Record struct {
	Fingerprint string
	SourceURL   string
	IsDog       bool
	BreedLabel  int
}

// Options configures a Cache
type Options struct {
	// Store is the persistent tier; nil keeps outcomes in memory only
	Store datastore.Interface
	// Memory enables the in-process tier
	Memory          bool
	MemoryTTL       time.Duration
	CleanupInterval time.Duration
	// Timeout bounds each store call
	Timeout time.Duration
	Metrics *metrics.CacheMetrics
}

// Cache implements lookups and best-effort inserts over the two tiers.
// Safe for concurrent use.
type Cache struct {
	store   datastore.Interface
	memory  *gocache.Cache
	timeout time.Duration
	metrics *metrics.CacheMetrics
	log     logger.Logger
}

// New returns a Cache over the configured tiers. With neither tier every
// lookup misses and inserts are dropped.
func New(opts Options) *Cache {
	c := &Cache{
		store:   opts.Store,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		log:     GetLogger(),
	}
	if opts.Memory {
		ttl := opts.MemoryTTL
		if ttl <= 0 {
			ttl = gocache.NoExpiration
		}
		cleanup := opts.CleanupInterval
		if cleanup <= 0 {
			cleanup = 10 * time.Minute
		}
		c.memory = gocache.New(ttl, cleanup)
	}
	return c
}

// Lookup returns the record for fingerprint. A miss is (Record{}, false, nil);
// errors mean the store could not be consulted.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (Record, bool, error) {
	if c.memory != nil {
		if v, ok := c.memory.Get(fingerprint); ok {
			c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultHit)
			return v.(Record), true, nil
		}
	}

	if c.store == nil {
		c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultMiss)
		return Record{}, false, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	row, err := c.store.Lookup(ctx, fingerprint)
	if err != nil {
		c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultError)
		return Record{}, false, errors.New(err).
			Component("resultcache").
			Category(errors.CategoryImageCache).
			Context("operation", "lookup").
			Context("backend", c.store.Name()).
			Build()
	}
	if row == nil {
		c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultMiss)
		return Record{}, false, nil
	}
	if row.IsDog && row.BreedLabel == nil {
		c.log.Warn("ignoring cached dog record without breed label",
			logger.String("image_hash", fingerprint),
			logger.Int64("row_id", int64(row.ID)))
		c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultMiss)
		return Record{}, false, nil
	}

	rec := fromImageLog(row)
	c.metrics.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultHit)
	if c.memory != nil {
		c.memory.SetDefault(fingerprint, rec)
	}
	return rec, true, nil
}

// Insert stores rec in every tier. An existing record for the same
// fingerprint is left in place.
func (c *Cache) Insert(ctx context.Context, rec Record) error {
	if c.memory != nil {
		// Add fails when the key exists, which keeps the first outcome
		_ = c.memory.Add(rec.Fingerprint, rec, gocache.DefaultExpiration)
	}

	if c.store == nil {
		c.metrics.RecordOperation(metrics.CacheOpInsert, metrics.CacheResultOK)
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.Insert(ctx, toImageLog(rec)); err != nil {
		c.metrics.RecordOperation(metrics.CacheOpInsert, metrics.CacheResultError)
		return errors.New(err).
			Component("resultcache").
			Category(errors.CategoryImageCache).
			Context("operation", "insert").
			Context("backend", c.store.Name()).
			Build()
	}
	c.metrics.RecordOperation(metrics.CacheOpInsert, metrics.CacheResultOK)
	return nil
}

// Ping checks the persistent tier, if any
func (c *Cache) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.store.Ping(ctx)
}

// Backend names the active tiers for logs and health output
func (c *Cache) Backend() string {
	switch {
	case c.store != nil && c.memory != nil:
		return c.store.Name() + "+memory"
	case c.store != nil:
		return c.store.Name()
	case c.memory != nil:
		return "memory"
	default:
		return "none"
	}
}

// Close flushes the memory tier and closes the store
func (c *Cache) Close() error {
	if c.memory != nil {
		c.memory.Flush()
	}
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func fromImageLog(row *datastore.ImageLog) Record {
	rec := Record{
		Fingerprint: row.ImageHash,
		SourceURL:   row.ImageURL,
		IsDog:       row.IsDog,
	}
	if row.IsDog {
		rec.BreedLabel = *row.BreedLabel
	}
	return rec
}

func toImageLog(rec Record) *datastore.ImageLog {
	row := &datastore.ImageLog{
		ImageHash: rec.Fingerprint,
		ImageURL:  rec.SourceURL,
		IsDog:     rec.IsDog,
	}
	if rec.IsDog {
		label := rec.BreedLabel
		row.BreedLabel = &label
	}
	return row
}

// GetLogger returns the resultcache module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("resultcache")
}
