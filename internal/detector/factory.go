package detector

import (
	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/inference"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// FromSettings loads the configured detection model
func FromSettings(settings *conf.Settings, m *metrics.ModelMetrics) (*YOLO, error) {
	cfg := settings.Detector

	var labels []string
	if cfg.LabelsPath != "" {
		var err error
		if labels, err = LoadLabels(cfg.LabelsPath); err != nil {
			return nil, err
		}
	} else {
		labels = COCOLabels()
	}

	runner, err := inference.Open(inference.Options{
		Backend:     cfg.Backend,
		Path:        cfg.ModelPath,
		Threads:     cfg.Threads,
		InputName:   cfg.ONNX.InputName,
		OutputName:  cfg.ONNX.OutputName,
		InputShape:  []int{1, 3, cfg.InputSize, cfg.InputSize},
		OutputShape: []int{1, 4 + len(labels), AnchorCount(cfg.InputSize)},
	})
	if err != nil {
		return nil, err
	}

	d, err := NewYOLO(inference.Instrument(runner, metrics.ModelDetector, m), Config{
		Labels:        labels,
		DogLabel:      cfg.DogLabel,
		MinConfidence: float32(cfg.MinConfidence),
	})
	if err != nil {
		_ = runner.Close()
		return nil, err
	}

	GetLogger().Info("dog detector ready",
		logger.String("backend", cfg.Backend),
		logger.String("model", cfg.ModelPath),
		logger.Int("classes", len(labels)),
		logger.Float64("min_confidence", cfg.MinConfidence))
	return d, nil
}

// AnchorCount returns the number of predictions a YOLOv8 head emits for a
// square input: one per cell of the stride 8, 16 and 32 grids.
func AnchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := size / stride
		n += cells * cells
	}
	return n
}
