package inference

import (
	"fmt"
	"os"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// ONNXLibraryEnv names the variable pointing at the onnxruntime shared library
const ONNXLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initONNXRuntime initialises the process-wide ONNX Runtime environment once
func initONNXRuntime() error {
	ortInitOnce.Do(func() {
		if lib := os.Getenv(ONNXLibraryEnv); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXConfig describes an ONNX model. Shapes are fixed at session
// creation, so dynamic dimensions must be resolved by the caller.
type ONNXConfig struct {
	Path        string
	InputName   string
	OutputName  string
	InputShape  []int
	OutputShape []int
	Threads     int
}

// ONNXRunner runs an ONNX model through a pre-bound session
type ONNXRunner struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	cfg     ONNXConfig
}

// NewONNX creates a session for cfg with its tensors bound up front
func NewONNX(cfg ONNXConfig) (*ONNXRunner, error) {
	if Elements(cfg.InputShape) <= 0 || Elements(cfg.OutputShape) <= 0 {
		return nil, errors.Newf("onnx model shapes must be positive, got %v and %v", cfg.InputShape, cfg.OutputShape).
			Category(errors.CategoryModelInit).
			ModelContext(cfg.Path, "onnx").
			Build()
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelLoad).
			ModelContext(cfg.Path, "onnx").
			Build()
	}
	if err := initONNXRuntime(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelInit).
			ModelContext(cfg.Path, "onnx").
			Context("library_env", ONNXLibraryEnv).
			Build()
	}

	input, err := ort.NewEmptyTensor[float32](toShape(cfg.InputShape))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](toShape(cfg.OutputShape))
	if err != nil {
		_ = input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()
	if err := options.SetIntraOpNumThreads(threadCount(cfg.Threads)); err != nil {
		GetLogger().Warn("cannot set ONNX thread count", logger.Error(err))
	}

	session, err := ort.NewAdvancedSession(cfg.Path,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.New(err).
			Category(errors.CategoryModelInit).
			ModelContext(cfg.Path, "onnx").
			Context("input_name", cfg.InputName).
			Context("output_name", cfg.OutputName).
			Build()
	}

	GetLogger().Info("ONNX model loaded",
		logger.String("model", cfg.Path),
		logger.String("input_shape", fmt.Sprint(cfg.InputShape)),
		logger.String("output_shape", fmt.Sprint(cfg.OutputShape)))

	return &ONNXRunner{session: session, input: input, output: output, cfg: cfg}, nil
}

func toShape(dims []int) ort.Shape {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}
	return ort.NewShape(shape...)
}

// Run implements Runner
func (r *ONNXRunner) Run(input []float32) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, fmt.Errorf("session is closed")
	}
	if err := checkInputLen(Elements(r.cfg.InputShape), len(input)); err != nil {
		return nil, err
	}

	copy(r.input.GetData(), input)
	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return slices.Clone(r.output.GetData()), nil
}

// InputShape implements Runner
func (r *ONNXRunner) InputShape() []int { return slices.Clone(r.cfg.InputShape) }

// OutputShape implements Runner
func (r *ONNXRunner) OutputShape() []int { return slices.Clone(r.cfg.OutputShape) }

// Close destroys the session and its tensors. The shared environment
// stays initialised for other sessions.
func (r *ONNXRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.session != nil {
		errs = append(errs, r.session.Destroy())
		r.session = nil
	}
	if r.input != nil {
		errs = append(errs, r.input.Destroy())
		r.input = nil
	}
	if r.output != nil {
		errs = append(errs, r.output.Destroy())
		r.output = nil
	}
	return errors.Join(errs...)
}
