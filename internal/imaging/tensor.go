package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// Layout is the memory order of a tensor
type Layout int

const (
	// NHWC stores pixels row-major with interleaved channels
	NHWC Layout = iota
	// NCHW stores one full plane per channel
	NCHW
)

// Scale selects how 8-bit channel values map to floats
type Scale int

const (
	// ScaleRaw keeps channel values in 0..255
	ScaleRaw Scale = iota
	// ScaleUnit divides channel values by 255
	ScaleUnit
	// ScaleImageNet applies ImageNet mean and standard deviation per channel
	ScaleImageNet
)

var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}

	// letterboxFill is the padding colour used by YOLO exports
	letterboxFill = color.NRGBA{R: 114, G: 114, B: 114, A: 255}
)

// TensorSpec describes the input a model expects
type TensorSpec struct {
	Width  int
	Height int
	Layout Layout
	Scale  Scale

	// Letterbox keeps the aspect ratio and pads instead of stretching
	Letterbox bool
}

// Len returns the number of float32 values of a tensor built for spec
func (s TensorSpec) Len() int {
	return s.Width * s.Height * 3
}

// Validate checks that spec describes a usable tensor
func (s TensorSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid tensor size %dx%d", s.Width, s.Height)
	}
	if s.Layout != NHWC && s.Layout != NCHW {
		return fmt.Errorf("invalid tensor layout %d", s.Layout)
	}
	if s.Scale < ScaleRaw || s.Scale > ScaleImageNet {
		return fmt.Errorf("invalid tensor scale %d", s.Scale)
	}
	return nil
}

// ParseScale maps a configuration value to a Scale
func ParseScale(name string) (Scale, error) {
	switch name {
	case "", "none", "raw":
		return ScaleRaw, nil
	case "unit":
		return ScaleUnit, nil
	case "imagenet":
		return ScaleImageNet, nil
	}
	return ScaleRaw, fmt.Errorf("unknown normalisation %q", name)
}

// Preprocess converts img to RGB, resizes it to spec and returns the
// tensor values.
func Preprocess(img image.Image, spec TensorSpec) ([]float32, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	src := ToRGB(img)
	var sized *image.NRGBA
	if spec.Letterbox {
		sized = Letterbox(src, spec.Width, spec.Height)
	} else {
		sized = Resize(src, spec.Width, spec.Height)
	}
	return Tensor(sized, spec), nil
}

// Resize scales img to exactly w x h with bicubic interpolation
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return ToNRGBA(resize.Resize(uint(w), uint(h), img, resize.Bicubic))
}

// Letterbox scales img to fit inside w x h preserving aspect ratio and
// centres it on a grey canvas.
func Letterbox(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	scale := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	nw := max(1, int(float64(b.Dx())*scale+0.5))
	nh := max(1, int(float64(b.Dy())*scale+0.5))

	scaled := Resize(img, nw, nh)
	if nw == w && nh == h {
		return scaled
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(letterboxFill), image.Point{}, draw.Src)
	offset := image.Pt((w-nw)/2, (h-nh)/2)
	draw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(image.Pt(nw, nh))}, scaled, image.Point{}, draw.Src)
	return canvas
}

// Tensor writes the RGB channels of img into a float32 slice using the
// layout and scale of spec. img must already be spec.Width x spec.Height.
func Tensor(img *image.NRGBA, spec TensorSpec) []float32 {
	w, h := spec.Width, spec.Height
	plane := w * h
	out := make([]float32, plane*3)

	for y := range h {
		row := img.Pix[y*img.Stride:]
		for x := range w {
			px := row[x*4 : x*4+3]
			for c := range 3 {
				v := scaleValue(px[c], c, spec.Scale)
				if spec.Layout == NCHW {
					out[c*plane+y*w+x] = v
				} else {
					out[(y*w+x)*3+c] = v
				}
			}
		}
	}
	return out
}

func scaleValue(v uint8, channel int, s Scale) float32 {
	switch s {
	case ScaleUnit:
		return float32(v) / 255
	case ScaleImageNet:
		return (float32(v)/255 - imageNetMean[channel]) / imageNetStd[channel]
	default:
		return float32(v)
	}
}
