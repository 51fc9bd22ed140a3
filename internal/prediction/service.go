// Package prediction implements the dog breed prediction pipeline:
// fetch, fingerprint, cache probe, decode, detect, preprocess, classify
// and persist.
package prediction

import (
	"context"
	"image"
	"math"
	"sync"
	"time"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/fingerprint"
	"github.com/tphakala/dogbreed-go/internal/httpclient"
	"github.com/tphakala/dogbreed-go/internal/imaging"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
	"github.com/tphakala/dogbreed-go/internal/privacy"
	"github.com/tphakala/dogbreed-go/internal/resultcache"
)

// Fetcher downloads image bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache stores verdicts by fingerprint
type Cache interface {
	Lookup(ctx context.Context, fingerprint string) (resultcache.Record, bool, error)
	Insert(ctx context.Context, rec resultcache.Record) error
}

// Detector reports whether an image contains a dog
type Detector interface {
	Detect(ctx context.Context, img image.Image) (bool, error)
}

// Classifier scores a preprocessed tensor against the breed taxonomy
type Classifier interface {
	Classify(ctx context.Context, tensor []float32) ([]float32, error)
}

// DefaultInput is the classifier input used when Options.Input is unset
var DefaultInput = imaging.TensorSpec{
	Width:  224,
	Height: 224,
	Layout: imaging.NHWC,
	Scale:  imaging.ScaleRaw,
}

// Options wires the pipeline stages. Cache may be nil. A nil Detector
// or Classifier makes every prediction fail with ErrModelUnavailable.
type Options struct {
	Fetcher    Fetcher
	Cache      Cache
	Detector   Detector
	Classifier Classifier

	// Input describes the classifier tensor
	Input imaging.TensorSpec
	// FetchTimeout bounds the download; zero leaves it to the fetcher
	FetchTimeout time.Duration

	Metrics      *metrics.PredictionMetrics
	FetchMetrics *metrics.FetchMetrics
}

// Service runs predictions. Each call is an independent sequential
// pipeline; the service holds no request state and does not merge
// concurrent requests for the same image.
type Service struct {
	fetcher      Fetcher
	cache        Cache
	detector     Detector
	classifier   Classifier
	input        imaging.TensorSpec
	fetchTimeout time.Duration
	metrics      *metrics.PredictionMetrics
	fetchMetrics *metrics.FetchMetrics
	log          logger.Logger

	// pending tracks background cache writes
	pending sync.WaitGroup
}

// New returns a Service for opts
func New(opts Options) *Service {
	input := opts.Input
	if input.Width == 0 {
		input = DefaultInput
	}
	if opts.Fetcher == nil {
		opts.Fetcher = httpclient.New(nil)
	}
	return &Service{
		fetcher:      opts.Fetcher,
		cache:        opts.Cache,
		detector:     opts.Detector,
		classifier:   opts.Classifier,
		input:        input,
		fetchTimeout: opts.FetchTimeout,
		metrics:      opts.Metrics,
		fetchMetrics: opts.FetchMetrics,
		log:          GetLogger(),
	}
}

// Ready reports whether both models are loaded
func (s *Service) Ready() bool {
	return s.detector != nil && s.classifier != nil
}

// Predict returns the breed label for the image at url
func (s *Service) Predict(ctx context.Context, url string) (int, error) {
	start := time.Now()
	label, outcome, err := s.predict(ctx, url)

	s.metrics.RecordOutcome(outcome)
	s.metrics.ObserveStage(metrics.StageTotal, time.Since(start).Seconds())

	log := s.log.WithContext(ctx).With(
		logger.String("url", privacy.RedactURL(url)),
		logger.String("outcome", outcome),
		logger.Duration("elapsed", time.Since(start)))
	switch {
	case err == nil:
		log.Info("prediction completed", logger.Int("label", label))
	case errors.Is(err, ErrNoDogDetected):
		log.Info("no dog detected")
	default:
		log.Warn("prediction failed", logger.Error(err))
	}
	return label, err
}

func (s *Service) predict(ctx context.Context, url string) (int, string, error) {
	if !s.Ready() {
		return 0, metrics.OutcomeModelUnavailable, wrap(ErrModelUnavailable, nil, errors.CategoryModelInit)
	}

	data, err := s.fetch(ctx, url)
	if err != nil {
		return 0, metrics.OutcomeRetrievalError, err
	}

	hash := fingerprint.Of(data)
	log := s.log.WithContext(ctx).With(logger.String("image_hash", hash))

	if rec, ok := s.lookup(ctx, hash); ok {
		if !rec.IsDog {
			log.Debug("cached negative verdict")
			return 0, metrics.OutcomeNoDog, wrap(ErrNoDogDetected, nil, errors.CategoryNoDog)
		}
		log.Debug("cached breed label", logger.Int("label", rec.BreedLabel))
		return rec.BreedLabel, metrics.OutcomeCacheHit, nil
	}

	stageStart := time.Now()
	img, format, err := imaging.Decode(data)
	s.metrics.ObserveStage(metrics.StageDecode, time.Since(stageStart).Seconds())
	if err != nil {
		return 0, metrics.OutcomeDecodeError, wrap(ErrDecode, err, errors.CategoryImageDecode)
	}
	log.Debug("image decoded",
		logger.String("format", format),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()))

	stageStart = time.Now()
	isDog, err := s.detector.Detect(ctx, img)
	s.metrics.ObserveStage(metrics.StageDetect, time.Since(stageStart).Seconds())
	if err != nil {
		return 0, metrics.OutcomeModelUnavailable, wrap(ErrModelUnavailable, err, errors.CategoryModelInference)
	}
	if !isDog {
		s.persist(ctx, resultcache.Record{Fingerprint: hash, SourceURL: url, IsDog: false})
		return 0, metrics.OutcomeNoDog, wrap(ErrNoDogDetected, nil, errors.CategoryNoDog)
	}

	stageStart = time.Now()
	tensor, err := imaging.Preprocess(img, s.input)
	s.metrics.ObserveStage(metrics.StagePreprocess, time.Since(stageStart).Seconds())
	if err != nil {
		return 0, metrics.OutcomeDecodeError, wrap(ErrDecode, err, errors.CategoryImageDecode)
	}

	stageStart = time.Now()
	scores, err := s.classifier.Classify(ctx, tensor)
	s.metrics.ObserveStage(metrics.StageClassify, time.Since(stageStart).Seconds())
	if err != nil {
		return 0, metrics.OutcomeModelUnavailable, wrap(ErrModelUnavailable, err, errors.CategoryModelInference)
	}
	label, ok := Argmax(scores)
	if !ok {
		return 0, metrics.OutcomeModelUnavailable, wrap(ErrModelUnavailable, errors.NewStd("classifier returned no usable scores"), errors.CategoryModelInference)
	}

	s.persist(ctx, resultcache.Record{Fingerprint: hash, SourceURL: url, IsDog: true, BreedLabel: label})
	return label, metrics.OutcomeSuccess, nil
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.fetcher.Fetch(ctx, url)
	s.metrics.ObserveStage(metrics.StageFetch, time.Since(start).Seconds())
	if err != nil {
		s.fetchMetrics.RecordError(fetchErrorReason(err))
		// fetch errors quote the URL, which may carry signed query parameters
		return nil, newError(ErrRetrieval, privacy.WrapError(err), errors.CategoryImageFetch).
			NetworkContext(url, s.fetchTimeout).
			Build()
	}
	s.fetchMetrics.ObserveBytes(len(data))
	return data, nil
}

func fetchErrorReason(err error) string {
	var status *httpclient.StatusError
	switch {
	case errors.As(err, &status):
		return "status"
	case errors.Is(err, httpclient.ErrBodyTooLarge):
		return "too_large"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "network"
	}
}

// lookup probes the cache. Failures are logged and treated as misses.
func (s *Service) lookup(ctx context.Context, hash string) (resultcache.Record, bool) {
	if s.cache == nil {
		return resultcache.Record{}, false
	}

	start := time.Now()
	rec, ok, err := s.cache.Lookup(ctx, hash)
	s.metrics.ObserveStage(metrics.StageLookup, time.Since(start).Seconds())
	if err != nil {
		s.log.WithContext(ctx).Warn("cache lookup failed, running full inference",
			logger.String("image_hash", hash),
			logger.Error(errors.Join(ErrCacheUnavailable, err)))
		return resultcache.Record{}, false
	}
	return rec, ok
}

// persist writes rec in the background. The write outlives request
// cancellation; the cache applies its own timeout.
func (s *Service) persist(ctx context.Context, rec resultcache.Record) {
	if s.cache == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Go(func() {
		if err := s.cache.Insert(ctx, rec); err != nil {
			s.log.WithContext(ctx).Warn("failed to cache prediction",
				logger.String("image_hash", rec.Fingerprint),
				logger.Bool("is_dog", rec.IsDog),
				logger.Error(errors.Join(ErrCacheUnavailable, err)))
		}
	})
}

// Close waits for pending cache writes. Call it after the last Predict.
func (s *Service) Close() {
	s.pending.Wait()
}

// Argmax returns the index of the highest score. Ties go to the lowest
// index. ok is false for an empty slice or when any score is NaN.
func Argmax(scores []float32) (index int, ok bool) {
	if len(scores) == 0 {
		return 0, false
	}
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			return 0, false
		}
		if v > scores[index] {
			index = i
		}
	}
	return index, true
}

// GetLogger returns the prediction module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("prediction")
}
