package testutil

import (
	"bytes"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodersRoundTrip(t *testing.T) {
	t.Parallel()

	img := SolidImage(5, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	assert.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())

	for name, data := range map[string][]byte{"png": EncodePNG(t, img), "jpeg": EncodeJPEG(t, img)} {
		decoded, format, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, name, format)
		assert.Equal(t, img.Bounds(), decoded.Bounds())
	}
}

func TestWaitFor(t *testing.T) {
	t.Parallel()

	ch := make(chan int, 1)
	ch <- 42
	assert.Equal(t, 42, WaitFor(t, ch, time.Second, "value expected"))
}
