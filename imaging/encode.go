package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"nftgen/core"
)

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("imaging: encode png: %w", err)
	}
	return nil
}

// PNGBytes encodes img into memory.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path as PNG regardless of the extension. The
// parent directory is created, and a failed encode leaves no file behind.
func SavePNG(path string, img image.Image) error {
	return core.WriteFileAtomic(path, func(w io.Writer) error {
		return EncodePNG(w, img)
	})
}
