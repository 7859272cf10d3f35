package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Nearest resamples img to w×h by sampling the source pixel under each
// destination pixel center.
func Nearest(img *image.RGBA, w, h int) *image.RGBA {
	return scale(draw.NearestNeighbor, img, w, h)
}

// Bicubic resamples img to w×h with a Catmull-Rom kernel.
func Bicubic(img image.Image, w, h int) *image.RGBA {
	return scale(draw.CatmullRom, img, w, h)
}

func scale(s draw.Scaler, img image.Image, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	s.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Pixelate shrinks img by factor with nearest-neighbor sampling and grows it
// back to its original size, producing factor×factor blocks. Each reduced
// dimension is at least one pixel.
func Pixelate(img *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return cloneRGB(img)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	small := Nearest(img, max(1, w/factor), max(1, h/factor))
	return Nearest(small, w, h)
}
