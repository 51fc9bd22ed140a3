package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PredictionMetrics tracks requests through the prediction pipeline.
type PredictionMetrics struct {
	Requests      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// NewPredictionMetrics creates and registers the prediction collectors.
func NewPredictionMetrics(registry prometheus.Registerer) (*PredictionMetrics, error) {
	m := &PredictionMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dogbreed_prediction_requests_total",
			Help: "Total number of prediction requests by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dogbreed_prediction_duration_seconds",
			Help:    "Duration of prediction pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2.5, 12),
		}, []string{"stage"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register prediction metrics: %w", err)
	}
	return m, nil
}

// RecordOutcome counts one finished request
func (m *PredictionMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took
func (m *PredictionMetrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// Describe implements the prometheus.Collector interface.
func (m *PredictionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
	m.StageDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PredictionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
	m.StageDuration.Collect(ch)
}
