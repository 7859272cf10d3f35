// Package imaging holds the pixel-level primitives behind the style filters
// and the diffusion preprocessing: decoding, RGB normalization, kernel
// filters, enhancers, posterize, resampling and PNG output.
//
// Every operation takes an image and returns a new *image.RGBA; inputs are
// never modified.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoding errors.
var (
	ErrInvalidImage = errors.New("imaging: invalid image data")
	ErrEmptyImage   = errors.New("imaging: empty image data")
)

// Decode reads an image in any registered format (PNG, JPEG, GIF, BMP,
// TIFF, WebP) and returns it with its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, "", fmt.Errorf("%w: %v", ErrEmptyImage, err)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// IsImage reports whether data starts with the signature of a decodable format.
func IsImage(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}
