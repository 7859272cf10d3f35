package sdruntime

import (
	"errors"
	"fmt"
	"image"
)

// ErrImageInvalidSize reports a pixel buffer that does not match its
// declared dimensions.
var ErrImageInvalidSize = errors.New("sdruntime: invalid image dimensions")

// PackRGB flattens img into tightly packed 8-bit RGB, row-major, as the C
// runtime expects for init images. Alpha is discarded.
func PackRGB(img *image.RGBA) []byte {
	b := img.Rect
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			out = append(out, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return out
}

// UnpackImage builds an opaque RGBA image from a packed buffer with 3 (RGB)
// or 4 (RGBA) channels per pixel.
func UnpackImage(pix []byte, width, height, channels int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d height=%d", ErrImageInvalidSize, width, height)
	}
	if channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrImageInvalidSize, channels)
	}
	if want := width * height * channels; len(pix) != want {
		return nil, fmt.Errorf("%w: expected %d bytes for %dx%dx%d, got %d",
			ErrImageInvalidSize, want, width, height, channels, len(pix))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(pix); i, j = i+channels, j+4 {
		img.Pix[j] = pix[i]
		img.Pix[j+1] = pix[i+1]
		img.Pix[j+2] = pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}
