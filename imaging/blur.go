package imaging

import (
	"image"
	"math"
)

// blurPasses is the number of box passes per direction.
const blurPasses = 3

// GaussianBlur approximates a gaussian of the given radius with three passes
// of an extended box filter in each direction (Gwosdek et al., 2011). Box
// weights are 8.24 fixed point and samples past the edge repeat the border
// pixel, so results match the reference filter exactly.
func GaussianBlur(img *image.RGBA, radius float64) *image.RGBA {
	box := boxRadius(float32(radius), blurPasses)
	if radius <= 0 || box == 0 {
		return cloneRGB(img)
	}

	out := cloneRGB(img)
	for i := 0; i < blurPasses; i++ {
		boxBlurRows(out, box)
	}
	t := transpose(out)
	for i := 0; i < blurPasses; i++ {
		boxBlurRows(t, box)
	}
	out = transpose(t)
	out.Rect = img.Rect
	return out
}

// boxRadius returns the fractional box radius whose passes-fold
// convolution has the variance of a gaussian with the given radius.
func boxRadius(radius float32, passes int) float32 {
	sigma2 := radius * radius / float32(passes)
	length := float32(math.Sqrt(12*float64(sigma2) + 1))
	l := float32(math.Floor((float64(length) - 1) / 2))
	a := (2*l + 1) * (l*(l+1) - 3*sigma2)
	a /= 6 * (sigma2 - (l+1)*(l+1))
	return l + a
}

// boxBlurRows runs one extended box pass along every row of img in place.
// The integer part of radius gets weight ww per tap and the two fractional
// taps at the ends share the remainder fw.
func boxBlurRows(img *image.RGBA, radius float32) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	r := int(radius)
	ww := uint32(float32(1<<24) / (radius*2 + 1))
	fw := ((1 << 24) - uint32(r*2+1)*ww) / 2
	edgeA := min(r+1, w)
	edgeB := max(w-r-1, 0)

	line := make([]uint8, w*4)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		boxBlurLine(line, row, w-1, r, edgeA, edgeB, ww, fw)
		copy(row, line)
	}
}

func boxBlurLine(out, in []uint8, last, r, edgeA, edgeB int, ww, fw uint32) {
	for x := 0; x <= last; x++ {
		out[x*4+3] = in[x*4+3]
	}

	for c := 0; c < 3; c++ {
		px := func(x int) uint32 { return uint32(in[x*4+c]) }

		// window for pixel -1: the first pixel repeated r+1 times, then
		// pixels 0..r-1 with the last pixel standing in past the end
		acc := px(0) * uint32(r+1)
		for x := 0; x < edgeA-1; x++ {
			acc += px(x)
		}
		acc += px(last) * uint32(r-edgeA+1)

		// unsigned wraparound in acc cancels out, as in the fixed-point original
		step := func(x, sub, add, left, right int) {
			acc += px(add) - px(sub)
			bulk := acc*ww + (px(left)+px(right))*fw
			out[x*4+c] = uint8((bulk + 1<<23) >> 24)
		}

		if edgeA <= edgeB {
			for x := 0; x < edgeA; x++ {
				step(x, 0, x+r, 0, x+r+1)
			}
			for x := edgeA; x < edgeB; x++ {
				step(x, x-r-1, x+r, x-r-1, x+r+1)
			}
			for x := edgeB; x <= last; x++ {
				step(x, x-r-1, last, x-r-1, last)
			}
		} else {
			for x := 0; x < edgeB; x++ {
				step(x, 0, x+r, 0, x+r+1)
			}
			for x := edgeB; x < edgeA; x++ {
				step(x, 0, last, 0, last)
			}
			for x := edgeA; x <= last; x++ {
				step(x, x-r-1, last, x-r-1, last)
			}
		}
	}
}

// transpose swaps the axes of img.
func transpose(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := y*img.Stride + x*4
			di := x*dst.Stride + y*4
			copy(dst.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return dst
}
