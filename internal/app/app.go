// Package app assembles the prediction service from settings: metrics,
// result cache, models, image fetcher and the pipeline itself.
package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/tphakala/dogbreed-go/internal/classifier"
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/detector"
	"github.com/tphakala/dogbreed-go/internal/httpclient"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
	"github.com/tphakala/dogbreed-go/internal/prediction"
	"github.com/tphakala/dogbreed-go/internal/resultcache"
)

// App owns every long-lived component of the service
type App struct {
	Settings   *conf.Settings
	Metrics    *observability.Metrics
	Cache      *resultcache.Cache
	Detector   *detector.YOLO
	Classifier *classifier.Model
	Fetcher    *httpclient.Client
	Service    *prediction.Service
}

// New builds the service. Model and cache failures are logged and the
// service starts degraded: without models every prediction fails with
// prediction.ErrModelUnavailable, and without a store verdicts are only
// cached in memory.
func New(settings *conf.Settings) (*App, error) {
	log := GetLogger()

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	a := &App{Settings: settings, Metrics: m}

	a.Cache, err = resultcache.FromSettings(settings, m.Cache)
	if err != nil {
		log.Error("result cache store unavailable, continuing without it",
			logger.String("backend", settings.Cache.Backend),
			logger.Error(err))
		a.Cache = resultcache.New(resultcache.Options{
			Memory:          settings.Cache.Memory.Enabled,
			MemoryTTL:       settings.Cache.Memory.TTL,
			CleanupInterval: settings.Cache.Memory.CleanupInterval,
			Metrics:         m.Cache,
		})
	}

	if a.Detector, err = detector.FromSettings(settings, m.Model); err != nil {
		log.Error("failed to load dog detector", logger.String("model", settings.Detector.ModelPath), logger.Error(err))
		a.Detector = nil
	}
	if a.Classifier, err = classifier.FromSettings(settings, m.Model); err != nil {
		log.Error("failed to load breed classifier", logger.String("model", settings.Classifier.ModelPath), logger.Error(err))
		a.Classifier = nil
	}

	a.Fetcher = httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Fetch.Timeout,
		UserAgent:      settings.Fetch.UserAgent,
		MaxBytes:       maxBytes(settings.Fetch.MaxBytes),
	})
	a.Fetcher.SetAfterResponseHook(recordResponse(m.Fetch))

	opts := prediction.Options{
		Fetcher:      a.Fetcher,
		Cache:        a.Cache,
		FetchTimeout: settings.Fetch.Timeout,
		Metrics:      m.Prediction,
		FetchMetrics: m.Fetch,
	}
	// typed nils must not reach the interfaces
	if a.Detector != nil {
		opts.Detector = a.Detector
	}
	if a.Classifier != nil {
		opts.Classifier = a.Classifier
		opts.Input = a.Classifier.Spec()
	}
	a.Service = prediction.New(opts)

	log.Info("prediction service assembled",
		logger.Bool("models_ready", a.Service.Ready()),
		logger.String("cache", a.Cache.Backend()))
	return a, nil
}

// maxBytes maps the config convention (0 disables) to the client's (<0 disables)
func maxBytes(configured int64) int64 {
	if configured == 0 {
		return -1
	}
	return configured
}

// Breeds returns the loaded breed taxonomy, or nil without a classifier
func (a *App) Breeds() classifier.Labels {
	if a.Classifier == nil {
		return nil
	}
	return a.Classifier.Labels()
}

// Predict runs one prediction
func (a *App) Predict(ctx context.Context, url string) (int, error) {
	return a.Service.Predict(ctx, url)
}

// Close waits for pending cache writes and releases every component
func (a *App) Close() error {
	a.Service.Close()

	var errs []error
	if a.Detector != nil {
		errs = append(errs, a.Detector.Close())
	}
	if a.Classifier != nil {
		errs = append(errs, a.Classifier.Close())
	}
	errs = append(errs, a.Cache.Close())
	a.Fetcher.Close()
	return errors.Join(errs...)
}

// GetLogger returns the app module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// recordResponse counts upstream image responses by status class
func recordResponse(m *metrics.FetchMetrics) func(*http.Request, *http.Response, error) {
	return func(_ *http.Request, resp *http.Response, err error) {
		if err != nil || resp == nil {
			m.RecordResponse(0)
			return
		}
		m.RecordResponse(resp.StatusCode)
	}
}
