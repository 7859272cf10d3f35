package imaging

import "image"

// ScaleChannels multiplies each channel by its factor, truncating towards
// zero and capping at 255.
func ScaleChannels(img *image.RGBA, rf, gf, bf float64) *image.RGBA {
	return mapChannels(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		return clamp8(float64(r) * rf), clamp8(float64(g) * gf), clamp8(float64(b) * bf)
	})
}
