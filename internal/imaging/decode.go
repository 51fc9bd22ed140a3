// Package imaging decodes downloaded images and turns them into model
// input tensors.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxPixels bounds decoded image size to keep decompression bombs out
const maxPixels = 80_000_000

// Decode parses data as an image in any registered format and returns
// the image and the format name. Dimensions are checked before the pixel
// data is decoded.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unrecognised image data: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("invalid %s dimensions %dx%d", format, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, format, fmt.Errorf("%s image too large: %dx%d", format, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	return img, format, nil
}

// ToNRGBA converts img to non-premultiplied 8-bit RGBA with its origin at
// (0,0). Grayscale, paletted, CMYK and YCbCr sources are expanded to
// three colour channels. Alpha is kept; use ToRGB to drop it.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ToRGB is ToNRGBA with every pixel made opaque. The stored colour of
// transparent pixels is kept, so resampling afterwards never blends
// towards black. img is not modified.
func ToRGB(img image.Image) *image.NRGBA {
	src := ToNRGBA(img)
	opaque := true
	for i := 3; i < len(src.Pix); i += 4 {
		if src.Pix[i] != 0xff {
			opaque = false
			break
		}
	}
	if opaque {
		return src
	}

	dst := image.NewNRGBA(src.Rect)
	for y := range src.Rect.Dy() {
		srow := src.Pix[y*src.Stride : y*src.Stride+src.Rect.Dx()*4]
		drow := dst.Pix[y*dst.Stride:]
		copy(drow, srow)
		for i := 3; i < len(srow); i += 4 {
			drow[i] = 0xff
		}
	}
	return dst
}
