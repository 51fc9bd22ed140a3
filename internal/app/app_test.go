package app

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
	"github.com/tphakala/dogbreed-go/internal/prediction"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()

	settings, err := conf.Defaults()
	require.NoError(t, err)

	dir := t.TempDir()
	settings.Cache.Backend = conf.CacheBackendMemory
	settings.Detector.ModelPath = filepath.Join(dir, "missing-detector.tflite")
	settings.Classifier.ModelPath = filepath.Join(dir, "missing-classifier.tflite")
	settings.Classifier.LabelsPath = filepath.Join(dir, "missing-labels.json")
	return settings
}

func TestNewWithoutModelsStartsDegraded(t *testing.T) {
	a, err := New(testSettings(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Detector)
	assert.Nil(t, a.Classifier)
	assert.Nil(t, a.Breeds())
	assert.False(t, a.Service.Ready())
	assert.Equal(t, "memory", a.Cache.Backend())

	_, err = a.Predict(context.Background(), "http://127.0.0.1:1/dog.jpg")
	require.ErrorIs(t, err, prediction.ErrModelUnavailable)
}

func TestNewFallsBackToMemoryCache(t *testing.T) {
	settings := testSettings(t)
	settings.Cache.Backend = "cassandra"

	a, err := New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, "memory", a.Cache.Backend())
	assert.NoError(t, a.Cache.Ping(context.Background()))
}

func TestNewWithoutAnyCache(t *testing.T) {
	settings := testSettings(t)
	settings.Cache.Backend = conf.CacheBackendNone

	a, err := New(settings)
	require.NoError(t, err)
	assert.Equal(t, "none", a.Cache.Backend())
	assert.NoError(t, a.Close())
}

func TestMaxBytes(t *testing.T) {
	assert.Equal(t, int64(-1), maxBytes(0))
	assert.Equal(t, int64(1024), maxBytes(1024))
}

func TestRecordResponse(t *testing.T) {
	m, err := metrics.NewFetchMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	hook := recordResponse(m)
	hook(nil, &http.Response{StatusCode: http.StatusOK}, nil)
	hook(nil, &http.Response{StatusCode: http.StatusBadGateway}, nil)
	hook(nil, nil, errors.New("connection refused"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Responses.WithLabelValues("2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Responses.WithLabelValues("5xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Responses.WithLabelValues("error")), 0)
}
