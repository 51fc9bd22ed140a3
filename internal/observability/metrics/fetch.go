package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// FetchMetrics tracks image downloads.
type FetchMetrics struct {
	Bytes     prometheus.Histogram
	Errors    *prometheus.CounterVec
	Responses *prometheus.CounterVec
}

// NewFetchMetrics creates and registers the fetch collectors.
func NewFetchMetrics(registry prometheus.Registerer) (*FetchMetrics, error) {
	m := &FetchMetrics{
		Bytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dogbreed_image_fetch_bytes",
			Help:    "Size of downloaded images in bytes.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 11),
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dogbreed_image_fetch_errors_total",
			Help: "Total number of failed image downloads by reason.",
		}, []string{"reason"}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dogbreed_image_fetch_responses_total",
			Help: "Total number of upstream responses by status class.",
		}, []string{"class"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register fetch metrics: %w", err)
	}
	return m, nil
}

// ObserveBytes records the size of one downloaded image
func (m *FetchMetrics) ObserveBytes(n int) {
	if m == nil {
		return
	}
	m.Bytes.Observe(float64(n))
}

// RecordError counts one failed download
func (m *FetchMetrics) RecordError(reason string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(reason).Inc()
}

// RecordResponse counts one upstream response by status class. A zero
// status means the request failed before a response arrived.
func (m *FetchMetrics) RecordResponse(status int) {
	if m == nil {
		return
	}
	m.Responses.WithLabelValues(StatusClass(status)).Inc()
}

// StatusClass maps an HTTP status to its class label ("2xx" .. "5xx"),
// or "error" when there was no response.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

// Describe implements the prometheus.Collector interface.
func (m *FetchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Bytes.Describe(ch)
	m.Errors.Describe(ch)
	m.Responses.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *FetchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Bytes.Collect(ch)
	m.Errors.Collect(ch)
	m.Responses.Collect(ch)
}
