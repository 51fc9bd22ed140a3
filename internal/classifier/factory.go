package classifier

import (
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/imaging"
	"github.com/tphakala/dogbreed-go/internal/inference"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// FromSettings loads the labels and the configured breed model
func FromSettings(settings *conf.Settings, m *metrics.ModelMetrics) (*Model, error) {
	cfg := settings.Classifier

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryLabelLoad).
			Context("labels_path", cfg.LabelsPath).
			Build()
	}

	scale, err := imaging.ParseScale(cfg.Normalize)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryConfiguration).Build()
	}

	size := cfg.InputSize
	if size <= 0 {
		size = DefaultInputSize
	}

	runner, err := inference.Open(inference.Options{
		Backend:     cfg.Backend,
		Path:        cfg.ModelPath,
		Threads:     cfg.Threads,
		InputName:   cfg.ONNX.InputName,
		OutputName:  cfg.ONNX.OutputName,
		InputShape:  []int{1, size, size, 3},
		OutputShape: []int{1, len(labels)},
	})
	if err != nil {
		return nil, err
	}

	model, err := NewModel(inference.Instrument(runner, metrics.ModelClassifier, m), labels, scale)
	if err != nil {
		_ = runner.Close()
		return nil, err
	}

	GetLogger().Info("breed classifier ready",
		logger.String("backend", cfg.Backend),
		logger.String("model", cfg.ModelPath),
		logger.Int("breeds", len(labels)),
		logger.String("normalize", cfg.Normalize))
	return model, nil
}
