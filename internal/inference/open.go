package inference

import (
	"strings"
	"time"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/observability/metrics"
)

// Supported backends
const (
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
)

// Options selects and configures a backend. The shapes are only used by
// the onnx backend; TensorFlow Lite reads them from the model.
type Options struct {
	Backend     string
	Path        string
	Threads     int
	InputName   string
	OutputName  string
	InputShape  []int
	OutputShape []int
}

// Open loads a model with the configured backend
func Open(opts Options) (Runner, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendTFLite, "":
		return NewTFLite(opts.Path, opts.Threads)
	case BackendONNX:
		return NewONNX(ONNXConfig{
			Path:        opts.Path,
			InputName:   opts.InputName,
			OutputName:  opts.OutputName,
			InputShape:  opts.InputShape,
			OutputShape: opts.OutputShape,
			Threads:     opts.Threads,
		})
	default:
		return nil, errors.Newf("unsupported inference backend %q", opts.Backend).
			Category(errors.CategoryConfiguration).
			Context("backend", opts.Backend).
			Build()
	}
}

// instrumented records latency and failures of every Run call
type instrumented struct {
	Runner
	model   string
	metrics *metrics.ModelMetrics
}

// Instrument wraps r so each Run is observed under the model name.
// A nil metrics collection returns r unchanged.
func Instrument(r Runner, model string, m *metrics.ModelMetrics) Runner {
	if m == nil {
		return r
	}
	return &instrumented{Runner: r, model: model, metrics: m}
}

func (i *instrumented) Run(input []float32) ([]float32, error) {
	start := time.Now()
	out, err := i.Runner.Run(input)
	i.metrics.ObserveInference(i.model, time.Since(start).Seconds(), err)
	return out, err
}
