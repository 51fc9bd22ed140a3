// Package detector decides whether an image contains a dog using a YOLO
// object detection model.
package detector

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/imaging"
	"github.com/tphakala/dogbreed-go/internal/inference"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// DefaultMinConfidence matches the ultralytics predict default
const DefaultMinConfidence = 0.25

// Config controls the detection policy
type Config struct {
	// Labels are the model classes; COCO is used when empty
	Labels []string
	// DogLabel is the class that counts as a dog
	DogLabel string
	// MinConfidence is the lowest class score that counts as a detection
	MinConfidence float32
}

// outputFormat tells where boxes and scores sit in the raw output
type outputFormat struct {
	anchors       int
	stride        int  // values per anchor row, 4+nc or 5+nc
	channelsFirst bool // [1, stride, anchors] instead of [1, anchors, stride]
	objectness    bool // YOLOv5 style row with an object score before the classes
}

// YOLO detects dogs with a YOLO model behind an inference.Runner.
// The runner serialises invocations so Detect is safe for concurrent use.
type YOLO struct {
	runner   inference.Runner
	spec     imaging.TensorSpec
	format   outputFormat
	labels   []string
	dogIndex int
	minScore float32
}

// NewYOLO wraps runner. It fails if the dog label is unknown or if the
// model shapes do not fit a YOLO detector over the configured labels.
func NewYOLO(runner inference.Runner, cfg Config) (*YOLO, error) {
	if runner == nil {
		return nil, fmt.Errorf("nil runner")
	}
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = COCOLabels()
	}
	if cfg.DogLabel == "" {
		cfg.DogLabel = "dog"
	}
	dogIndex := labelIndex(labels, cfg.DogLabel)
	if dogIndex < 0 {
		return nil, errors.Newf("label %q is not a detector class", cfg.DogLabel).
			Category(errors.CategoryConfiguration).
			Context("labels", len(labels)).
			Build()
	}
	minScore := cfg.MinConfidence
	if minScore <= 0 {
		minScore = DefaultMinConfidence
	}

	spec, err := inputSpec(runner.InputShape())
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryModelInit).Build()
	}
	format, err := parseOutputShape(runner.OutputShape(), len(labels))
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryModelInit).Build()
	}

	return &YOLO{
		runner:   runner,
		spec:     spec,
		format:   format,
		labels:   labels,
		dogIndex: dogIndex,
		minScore: minScore,
	}, nil
}

// inputSpec derives size and layout from a [1,3,H,W] or [1,H,W,3] shape
func inputSpec(shape []int) (imaging.TensorSpec, error) {
	if len(shape) != 4 {
		return imaging.TensorSpec{}, fmt.Errorf("detector input must have 4 dimensions, got %v", shape)
	}
	spec := imaging.TensorSpec{Scale: imaging.ScaleUnit, Letterbox: true}
	switch {
	case shape[3] == 3:
		spec.Layout, spec.Height, spec.Width = imaging.NHWC, shape[1], shape[2]
	case shape[1] == 3:
		spec.Layout, spec.Height, spec.Width = imaging.NCHW, shape[2], shape[3]
	default:
		return imaging.TensorSpec{}, fmt.Errorf("detector input %v has no 3 channel axis", shape)
	}
	return spec, spec.Validate()
}

// parseOutputShape recognises [1, 4+nc, N], [1, N, 4+nc] and the
// YOLOv5 variants with 5+nc values per anchor.
func parseOutputShape(shape []int, classes int) (outputFormat, error) {
	if len(shape) == 2 {
		shape = append([]int{1}, shape...)
	}
	if len(shape) != 3 || shape[0] != 1 {
		return outputFormat{}, fmt.Errorf("detector output must be [1, rows, cols], got %v", shape)
	}

	for _, extra := range []int{4, 5} {
		stride := extra + classes
		switch stride {
		case shape[1]:
			return outputFormat{anchors: shape[2], stride: stride, channelsFirst: true, objectness: extra == 5}, nil
		case shape[2]:
			return outputFormat{anchors: shape[1], stride: stride, objectness: extra == 5}, nil
		}
	}
	return outputFormat{}, fmt.Errorf("detector output %v does not fit %d classes", shape, classes)
}

// Detect reports whether img contains at least one dog scoring at or
// above the minimum confidence.
func (d *YOLO) Detect(ctx context.Context, img image.Image) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	input, err := imaging.Preprocess(img, d.spec)
	if err != nil {
		return false, errors.New(err).Category(errors.CategoryImageDecode).Build()
	}

	start := time.Now()
	output, err := d.runner.Run(input)
	if err != nil {
		return false, errors.New(err).
			Category(errors.CategoryModelInference).
			Timing("detect", time.Since(start)).
			Build()
	}
	if want := d.format.anchors * d.format.stride; len(output) != want {
		return false, errors.Newf("detector returned %d values, expected %d", len(output), want).
			Category(errors.CategoryModelInference).
			Build()
	}

	best := d.bestDogScore(output)
	GetLogger().Debug("dog detection finished",
		logger.Float32("best_score", best),
		logger.Float32("min_confidence", d.minScore),
		logger.Duration("elapsed", time.Since(start)))

	return best >= d.minScore, nil
}

// bestDogScore returns the highest dog class score over all anchors
func (d *YOLO) bestDogScore(output []float32) float32 {
	f := d.format
	classOffset := 4
	if f.objectness {
		classOffset = 5
	}

	at := func(anchor, field int) float32 {
		if f.channelsFirst {
			return output[field*f.anchors+anchor]
		}
		return output[anchor*f.stride+field]
	}

	var best float32
	for i := range f.anchors {
		score := at(i, classOffset+d.dogIndex)
		if f.objectness {
			score *= at(i, 4)
		}
		best = max(best, score)
	}
	return best
}

// Labels returns the detector classes
func (d *YOLO) Labels() []string {
	return d.labels
}

// Close releases the model
func (d *YOLO) Close() error {
	return d.runner.Close()
}

// GetLogger returns the detector module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("detector")
}
