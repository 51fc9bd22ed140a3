package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ModelMetrics tracks inference latency per model.
type ModelMetrics struct {
	InferenceDuration *prometheus.HistogramVec
	InferenceErrors   *prometheus.CounterVec
}

// NewModelMetrics creates and registers the model collectors.
func NewModelMetrics(registry prometheus.Registerer) (*ModelMetrics, error) {
	m := &ModelMetrics{
		InferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dogbreed_model_inference_duration_seconds",
			Help:    "Duration of model invocations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"model"}),
		InferenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dogbreed_model_inference_errors_total",
			Help: "Total number of failed model invocations.",
		}, []string{"model"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register model metrics: %w", err)
	}
	return m, nil
}

// ObserveInference records one model invocation
func (m *ModelMetrics) ObserveInference(model string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.InferenceDuration.WithLabelValues(model).Observe(seconds)
	if err != nil {
		m.InferenceErrors.WithLabelValues(model).Inc()
	}
}

// Describe implements the prometheus.Collector interface.
func (m *ModelMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.InferenceDuration.Describe(ch)
	m.InferenceErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ModelMetrics) Collect(ch chan<- prometheus.Metric) {
	m.InferenceDuration.Collect(ch)
	m.InferenceErrors.Collect(ch)
}
