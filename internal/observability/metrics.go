// Package observability wires the Prometheus collectors into a private
// registry and exposes them over HTTP.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the service.
type Metrics struct {
	registry   *prometheus.Registry
	Prediction *metrics.PredictionMetrics
	Cache      *metrics.CacheMetrics
	Model      *metrics.ModelMetrics
	Fetch      *metrics.FetchMetrics
}

// NewMetrics creates a registry with the service and runtime collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	predictionMetrics, err := metrics.NewPredictionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction metrics: %w", err)
	}

	cacheMetrics, err := metrics.NewCacheMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache metrics: %w", err)
	}

	modelMetrics, err := metrics.NewModelMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create model metrics: %w", err)
	}

	fetchMetrics, err := metrics.NewFetchMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Prediction: predictionMetrics,
		Cache:      cacheMetrics,
		Model:      modelMetrics,
		Fetch:      fetchMetrics,
	}, nil
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{GetLogger()},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promErrorLogger adapts Logger to promhttp.Logger
type promErrorLogger struct {
	log logger.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.log.Error(fmt.Sprint(v...))
}

// GetLogger returns the observability module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}
