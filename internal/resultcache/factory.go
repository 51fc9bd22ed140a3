package resultcache

import (
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/datastore"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// FromSettings opens the configured store and returns a Cache over it.
// The memory backend always enables the in-process tier.
func FromSettings(settings *conf.Settings, m *metrics.CacheMetrics) (*Cache, error) {
	cfg := settings.Cache

	opts := Options{
		Memory:          cfg.Memory.Enabled,
		MemoryTTL:       cfg.Memory.TTL,
		CleanupInterval: cfg.Memory.CleanupInterval,
		Timeout:         cfg.Timeout,
		Metrics:         m,
	}

	switch cfg.BackendName() {
	case conf.CacheBackendMemory:
		opts.Memory = true
	case conf.CacheBackendNone:
		opts.Memory = false
	}

	store, err := datastore.New(settings)
	switch {
	case errors.Is(err, datastore.ErrNoPersistentStore):
		store = nil
	case err != nil:
		return nil, err
	default:
		if err := store.Open(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	opts.Store = store

	c := New(opts)
	GetLogger().Info("result cache ready", logger.String("backend", c.Backend()))
	return c, nil
}
