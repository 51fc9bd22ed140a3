package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics counts result cache lookups and inserts.
type CacheMetrics struct {
	Operations *prometheus.CounterVec
}

// NewCacheMetrics creates and registers the cache collectors.
func NewCacheMetrics(registry prometheus.Registerer) (*CacheMetrics, error) {
	m := &CacheMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dogbreed_cache_operations_total",
			Help: "Total number of result cache operations by operation and result.",
		}, []string{"operation", "result"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register cache metrics: %w", err)
	}
	return m, nil
}

// RecordOperation counts one cache operation
func (m *CacheMetrics) RecordOperation(operation, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *CacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CacheMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
}
