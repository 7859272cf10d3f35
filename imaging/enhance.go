package imaging

import "image"

// Enhancement factors below 1 move towards the degenerate image, above 1
// push away from it. Factor 1 returns an identical copy.

// blend computes deg + factor*(img-deg) per channel, truncating towards zero
// and clamping.
func blend(deg, img *image.RGBA, factor float64) *image.RGBA {
	dst := cloneRGB(img)
	f := float32(factor)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float32(deg.Pix[i+c])
			v := d + f*(float32(img.Pix[i+c])-d)
			dst.Pix[i+c] = clamp8(float64(v))
		}
	}
	return dst
}

// Color adjusts saturation by blending against the grayscale version of img.
func Color(img *image.RGBA, factor float64) *image.RGBA {
	gray := mapChannels(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		l := Luma(r, g, b)
		return l, l, l
	})
	return blend(gray, img, factor)
}

// Contrast blends against a flat gray at the image's mean luma.
func Contrast(img *image.RGBA, factor float64) *image.RGBA {
	mean := uint8(MeanLuma(img) + 0.5)
	flat := mapChannels(img, func(_, _, _ uint8) (uint8, uint8, uint8) {
		return mean, mean, mean
	})
	return blend(flat, img, factor)
}

// Brightness blends against black.
func Brightness(img *image.RGBA, factor float64) *image.RGBA {
	black := image.NewRGBA(img.Rect)
	return blend(black, img, factor)
}

// MeanLuma returns the average Luma over all pixels, or 0 for an empty image.
func MeanLuma(img *image.RGBA) float64 {
	var sum, n uint64
	for i := 0; i+3 < len(img.Pix); i += 4 {
		sum += uint64(Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]))
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
