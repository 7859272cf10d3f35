package imaging

import "image"

// Posterize keeps the top bits of every channel (1..8), zeroing the rest.
// bits=4 leaves 16 levels per channel, bits=3 leaves 8.
func Posterize(img *image.RGBA, bits int) *image.RGBA {
	if bits < 1 {
		bits = 1
	}
	if bits > 8 {
		bits = 8
	}
	mask := uint8(0xff << (8 - bits))
	return mapChannels(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		return r & mask, g & mask, b & mask
	})
}
