package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20
	var wg sync.WaitGroup
	results := make(chan *Metrics, numGoroutines)
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			assert.NoError(t, err)
			results <- m
		})
	}
	wg.Wait()
	close(results)

	for m := range results {
		require.NotNil(t, m)
		assert.NotNil(t, m.registry)
		assert.NotNil(t, m.Prediction)
		assert.NotNil(t, m.Cache)
		assert.NotNil(t, m.Model)
		assert.NotNil(t, m.Fetch)
	}
}

func TestMetricsRecording(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Prediction.RecordOutcome(metrics.OutcomeSuccess)
	m.Prediction.RecordOutcome(metrics.OutcomeSuccess)
	m.Prediction.RecordOutcome(metrics.OutcomeNoDog)
	m.Prediction.ObserveStage(metrics.StageClassify, 0.12)
	m.Cache.RecordOperation(metrics.CacheOpLookup, metrics.CacheResultHit)
	m.Model.ObserveInference(metrics.ModelDetector, 0.05, errors.New("boom"))
	m.Fetch.ObserveBytes(123_456)
	m.Fetch.RecordResponse(http.StatusOK)
	m.Fetch.RecordResponse(http.StatusNotFound)
	m.Fetch.RecordResponse(0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Prediction.Requests.WithLabelValues(metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Prediction.Requests.WithLabelValues(metrics.OutcomeNoDog)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Cache.Operations.WithLabelValues(metrics.CacheOpLookup, metrics.CacheResultHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Model.InferenceErrors.WithLabelValues(metrics.ModelDetector)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fetch.Responses.WithLabelValues("2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fetch.Responses.WithLabelValues("4xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fetch.Responses.WithLabelValues("error")), 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	for _, name := range []string{
		"dogbreed_prediction_requests_total",
		"dogbreed_prediction_duration_seconds",
		"dogbreed_cache_operations_total",
		"dogbreed_model_inference_duration_seconds",
		"dogbreed_image_fetch_bytes",
	} {
		assert.Contains(t, byName, name)
	}

	fetch := byName["dogbreed_image_fetch_bytes"]
	require.NotNil(t, fetch)
	require.Len(t, fetch.GetMetric(), 1)
	assert.Equal(t, uint64(1), fetch.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.InDelta(t, 123_456, fetch.GetMetric()[0].GetHistogram().GetSampleSum(), 0)
}

func TestNilCollectorsAreSafe(t *testing.T) {
	t.Parallel()

	var (
		p *metrics.PredictionMetrics
		c *metrics.CacheMetrics
		m *metrics.ModelMetrics
		f *metrics.FetchMetrics
	)
	assert.NotPanics(t, func() {
		p.RecordOutcome(metrics.OutcomeSuccess)
		p.ObserveStage(metrics.StageTotal, 1)
		c.RecordOperation(metrics.CacheOpInsert, metrics.CacheResultOK)
		m.ObserveInference(metrics.ModelClassifier, 1, nil)
		f.ObserveBytes(1)
		f.RecordError("status")
		f.RecordResponse(http.StatusOK)
	})
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:   "error",
		99:  "error",
		200: "2xx",
		204: "2xx",
		302: "3xx",
		404: "4xx",
		503: "5xx",
		600: "error",
	}
	for status, want := range tests {
		assert.Equal(t, want, metrics.StatusClass(status), status)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Prediction.RecordOutcome(metrics.OutcomeCacheHit)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dogbreed_prediction_requests_total{outcome="cache_hit"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
