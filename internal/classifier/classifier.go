// Package classifier scores a preprocessed image against the breed taxonomy.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/imaging"
	"github.com/tphakala/dogbreed-go/internal/inference"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// DefaultInputSize is the square input edge of the breed model
const DefaultInputSize = 224

// Model classifies breed tensors with an inference.Runner
type Model struct {
	runner inference.Runner
	labels Labels
	spec   imaging.TensorSpec
}

// NewModel wraps runner. The runner must take a [1,S,S,3] or [1,3,S,S]
// input and produce one score per label.
func NewModel(runner inference.Runner, labels Labels, scale imaging.Scale) (*Model, error) {
	if runner == nil {
		return nil, fmt.Errorf("nil runner")
	}
	if len(labels) == 0 {
		return nil, errors.Newf("classifier has no labels").Category(errors.CategoryLabelLoad).Build()
	}

	spec, err := inputSpec(runner.InputShape(), scale)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryModelInit).Build()
	}

	out := runner.OutputShape()
	if len(out) == 0 || out[len(out)-1] != len(labels) || inference.Elements(out) != len(labels) {
		return nil, errors.Newf("model output %v does not match %d labels", out, len(labels)).
			Category(errors.CategoryModelInit).
			Context("labels", len(labels)).
			Build()
	}

	return &Model{runner: runner, labels: labels, spec: spec}, nil
}

func inputSpec(shape []int, scale imaging.Scale) (imaging.TensorSpec, error) {
	if len(shape) != 4 {
		return imaging.TensorSpec{}, fmt.Errorf("classifier input must have 4 dimensions, got %v", shape)
	}
	spec := imaging.TensorSpec{Scale: scale}
	switch {
	case shape[3] == 3:
		spec.Layout, spec.Height, spec.Width = imaging.NHWC, shape[1], shape[2]
	case shape[1] == 3:
		spec.Layout, spec.Height, spec.Width = imaging.NCHW, shape[2], shape[3]
	default:
		return imaging.TensorSpec{}, fmt.Errorf("classifier input %v has no 3 channel axis", shape)
	}
	return spec, spec.Validate()
}

// Spec returns the tensor layout the model expects
func (m *Model) Spec() imaging.TensorSpec {
	return m.spec
}

// Labels returns the breed taxonomy
func (m *Model) Labels() Labels {
	return m.labels
}

// Classify returns one score per breed for a tensor built with Spec
func (m *Model) Classify(ctx context.Context, tensor []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tensor) != m.spec.Len() {
		return nil, errors.Newf("tensor has %d values, expected %d", len(tensor), m.spec.Len()).
			Category(errors.CategoryValidation).
			Build()
	}

	start := time.Now()
	scores, err := m.runner.Run(tensor)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryModelInference).
			Timing("classify", time.Since(start)).
			Build()
	}
	if len(scores) != len(m.labels) {
		return nil, errors.Newf("classifier returned %d scores for %d labels", len(scores), len(m.labels)).
			Category(errors.CategoryModelInference).
			Build()
	}

	GetLogger().Trace("breed scores computed",
		logger.Int("labels", len(scores)),
		logger.Duration("elapsed", time.Since(start)))
	return scores, nil
}

// Close releases the model
func (m *Model) Close() error {
	return m.runner.Close()
}

// GetLogger returns the classifier module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("classifier")
}
