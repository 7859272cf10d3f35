package imaging

import (
	"image"
	"image/color"
)

// ToRGB copies img into an opaque RGBA buffer anchored at the origin.
// Alpha is dropped, not composited: a translucent pixel keeps its straight
// color values.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := dst.PixOffset(0, y)
			for x := 0; x < b.Dx(); x++ {
				dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] =
					src.Pix[si], src.Pix[si+1], src.Pix[si+2], 0xff
				si += 4
				di += 4
			}
		}
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		di := dst.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] = c.R, c.G, c.B, 0xff
			di += 4
		}
	}
	return dst
}

// cloneRGB returns an independent copy of an RGB buffer.
func cloneRGB(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// mapChannels applies fn to the R, G and B bytes of every pixel.
func mapChannels(src *image.RGBA, fn func(r, g, b uint8) (uint8, uint8, uint8)) *image.RGBA {
	dst := cloneRGB(src)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = fn(dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2])
	}
	return dst
}

// Luma returns the ITU-R 601-2 gray value used by the color and contrast
// enhancers: (R*19595 + G*38470 + B*7471 + 0x8000) >> 16.
func Luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
