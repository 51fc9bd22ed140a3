package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/dogbreed-go/internal/testutil"
)

var solid = testutil.SolidImage

func TestDecodeFormats(t *testing.T) {
	t.Parallel()

	img := solid(8, 6, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	var gf bytes.Buffer
	require.NoError(t, gif.Encode(&gf, img, nil))

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", testutil.EncodePNG(t, img), "png"},
		{"jpeg", testutil.EncodeJPEG(t, img), "jpeg"},
		{"gif", gf.Bytes(), "gif"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decoded, format, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, 8, decoded.Bounds().Dx())
			assert.Equal(t, 6, decoded.Bounds().Dy())
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := Decode(nil)
	require.Error(t, err)

	_, _, err = Decode([]byte("<html>not an image</html>"))
	require.Error(t, err)

	truncated := testutil.EncodePNG(t, solid(32, 32, color.White))
	_, _, err = Decode(truncated[:len(truncated)/2])
	require.Error(t, err)
}

func TestToNRGBAExpandsGrayscale(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(10, 10, 14, 12))
	for i := range gray.Pix {
		gray.Pix[i] = 77
	}

	out := ToNRGBA(gray)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, out.NRGBAAt(3, 1))
}

func TestToNRGBAKeepsColourUnderAlpha(t *testing.T) {
	t.Parallel()

	src := solid(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	tensor := Tensor(ToNRGBA(src), TensorSpec{Width: 2, Height: 2})
	assert.Equal(t, []float32{10, 20, 30}, tensor[:3])
}

func TestToRGBDropsAlpha(t *testing.T) {
	t.Parallel()

	src := solid(3, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	out := ToRGB(src)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, out.NRGBAAt(2, 1))
	assert.Equal(t, uint8(0), src.Pix[3], "source must not be modified")

	opaque := solid(2, 2, color.NRGBA{R: 1, A: 255})
	assert.Same(t, opaque, ToRGB(opaque))
}

func TestPreprocessKeepsColourOfTransparentPixels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		alpha uint8
	}{
		{"transparent", 0},
		{"translucent", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := solid(10, 10, color.NRGBA{R: 255, G: 40, B: 0, A: tt.alpha})
			for _, spec := range []TensorSpec{
				{Width: 4, Height: 4},
				{Width: 4, Height: 4, Letterbox: true},
			} {
				tensor, err := Preprocess(src, spec)
				require.NoError(t, err)
				for i := 0; i < len(tensor); i += 3 {
					assert.InDelta(t, 255, tensor[i], 1)
					assert.InDelta(t, 40, tensor[i+1], 1)
					assert.InDelta(t, 0, tensor[i+2], 1)
				}
			}
		})
	}
}

func TestTensorLayouts(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 4, G: 5, B: 6, A: 255})

	nhwc := Tensor(img, TensorSpec{Width: 2, Height: 1, Layout: NHWC})
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, nhwc)

	nchw := Tensor(img, TensorSpec{Width: 2, Height: 1, Layout: NCHW})
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, nchw)
}

func TestTensorScales(t *testing.T) {
	t.Parallel()

	img := solid(1, 1, color.NRGBA{R: 255, G: 0, B: 128, A: 255})

	unit := Tensor(img, TensorSpec{Width: 1, Height: 1, Scale: ScaleUnit})
	assert.InDeltaSlice(t, []float32{1, 0, 128.0 / 255}, unit, 1e-6)

	imagenet := Tensor(img, TensorSpec{Width: 1, Height: 1, Scale: ScaleImageNet})
	assert.InDelta(t, (1-0.485)/0.229, imagenet[0], 1e-5)
	assert.InDelta(t, (0-0.456)/0.224, imagenet[1], 1e-5)
}

func TestPreprocessResizesToSpec(t *testing.T) {
	t.Parallel()

	spec := TensorSpec{Width: 224, Height: 224}
	tensor, err := Preprocess(solid(500, 375, color.NRGBA{R: 30, G: 60, B: 90, A: 255}), spec)
	require.NoError(t, err)
	require.Len(t, tensor, spec.Len())

	// uniform input stays uniform through interpolation
	for i := 0; i < len(tensor); i += 3 {
		assert.InDelta(t, 30, tensor[i], 1)
		assert.InDelta(t, 90, tensor[i+2], 1)
	}
}

func TestPreprocessValidates(t *testing.T) {
	t.Parallel()

	_, err := Preprocess(nil, TensorSpec{Width: 1, Height: 1})
	require.Error(t, err)

	_, err = Preprocess(solid(1, 1, color.White), TensorSpec{Width: 0, Height: 10})
	require.Error(t, err)
}

func TestLetterbox(t *testing.T) {
	t.Parallel()

	red := color.NRGBA{R: 255, A: 255}
	out := Letterbox(solid(200, 100, red), 64, 64)
	require.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())

	assert.Equal(t, letterboxFill, out.NRGBAAt(0, 0))
	assert.Equal(t, letterboxFill, out.NRGBAAt(63, 63))

	centre := out.NRGBAAt(32, 32)
	assert.InDelta(t, 255, int(centre.R), 1)
	assert.InDelta(t, 0, int(centre.G), 1)
}

func TestParseScale(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Scale{"": ScaleRaw, "none": ScaleRaw, "unit": ScaleUnit, "imagenet": ScaleImageNet} {
		got, err := ParseScale(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseScale("zscore")
	require.Error(t, err)
}
