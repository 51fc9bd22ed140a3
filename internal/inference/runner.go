// Package inference runs single-input, single-output float32 models on
// TensorFlow Lite or ONNX Runtime.
package inference

import (
	"fmt"
	"runtime"

	"github.com/tphakala/dogbreed-go/internal/cpuspec"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// Runner executes a model with one float32 input and one float32 output.
// Implementations serialise calls internally and are safe for concurrent use.
type Runner interface {
	// Run copies input into the model, invokes it and returns a copy of the output
	Run(input []float32) ([]float32, error)
	// InputShape returns the input dimensions, batch first
	InputShape() []int
	// OutputShape returns the output dimensions, batch first
	OutputShape() []int
	Close() error
}

// Elements returns the product of shape's dimensions
func Elements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func checkInputLen(want, got int) error {
	if want != got {
		return fmt.Errorf("input has %d values, model expects %d", got, want)
	}
	return nil
}

// threadCount resolves a configured thread count. 0 picks a default for
// the host CPU.
func threadCount(configured int) int {
	if configured <= 0 {
		return cpuspec.Detect().InferenceThreads()
	}
	return min(configured, runtime.NumCPU())
}

// GetLogger returns the inference module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("inference")
}
