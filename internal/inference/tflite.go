package inference

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/tphakala/go-tflite"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// TFLiteRunner runs a TensorFlow Lite model
type TFLiteRunner struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	inputShape  []int
	outputShape []int
	path        string
}

// NewTFLite loads the model at path and allocates its tensors
func NewTFLite(path string, threads int) (*TFLiteRunner, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelLoad).
			ModelContext(path, "tflite").
			Build()
	}

	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Category(errors.CategoryModelLoad).
			ModelContext(path, "tflite").
			Build()
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threadCount(threads))
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg), logger.String("model", path))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}

	r := &TFLiteRunner{
		model:       model,
		options:     options,
		interpreter: interpreter,
		path:        path,
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		_ = r.Close()
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}

	input := interpreter.GetInputTensor(0)
	output := interpreter.GetOutputTensor(0)
	if input == nil || output == nil {
		_ = r.Close()
		return nil, errors.Newf("model has no input or output tensor").
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}
	if input.Type() != tflite.Float32 || output.Type() != tflite.Float32 {
		_ = r.Close()
		return nil, errors.Newf("model tensors must be float32, got %v in and %v out", input.Type(), output.Type()).
			Category(errors.CategoryModelInit).
			ModelContext(path, "tflite").
			Build()
	}

	r.inputShape = tensorShape(input)
	r.outputShape = tensorShape(output)

	GetLogger().Info("TFLite model loaded",
		logger.String("model", path),
		logger.String("input_shape", fmt.Sprint(r.inputShape)),
		logger.String("output_shape", fmt.Sprint(r.outputShape)),
		logger.Int("threads", threadCount(threads)))

	return r, nil
}

func tensorShape(t *tflite.Tensor) []int {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return shape
}

// Run implements Runner
func (r *TFLiteRunner) Run(input []float32) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interpreter == nil {
		return nil, fmt.Errorf("interpreter is closed")
	}
	if err := checkInputLen(Elements(r.inputShape), len(input)); err != nil {
		return nil, err
	}

	inputTensor := r.interpreter.GetInputTensor(0)
	copy(inputTensor.Float32s(), input)

	if status := r.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	return slices.Clone(r.interpreter.GetOutputTensor(0).Float32s()), nil
}

// InputShape implements Runner
func (r *TFLiteRunner) InputShape() []int { return slices.Clone(r.inputShape) }

// OutputShape implements Runner
func (r *TFLiteRunner) OutputShape() []int { return slices.Clone(r.outputShape) }

// Close releases the interpreter, options and model
func (r *TFLiteRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interpreter != nil {
		r.interpreter.Delete()
		r.interpreter = nil
	}
	if r.options != nil {
		r.options.Delete()
		r.options = nil
	}
	if r.model != nil {
		r.model.Delete()
		r.model = nil
	}
	return nil
}
