package imaging

import "image"

// Kernel is a square convolution filter. Each output channel is
// sum(weight*pixel)/Scale + Offset, rounded and clamped to 0..255.
type Kernel struct {
	Name    string
	Size    int // 3 or 5
	Weights []int
	Scale   int
	Offset  int
}

// Built-in kernels used by the style pipelines.
var (
	SmoothMore = Kernel{
		Name: "smooth_more",
		Size: 5,
		Weights: []int{
			1, 1, 1, 1, 1,
			1, 5, 5, 5, 1,
			1, 5, 44, 5, 1,
			1, 5, 5, 5, 1,
			1, 1, 1, 1, 1,
		},
		Scale: 100,
	}

	EdgeEnhance = Kernel{
		Name: "edge_enhance",
		Size: 3,
		Weights: []int{
			-1, -1, -1,
			-1, 10, -1,
			-1, -1, -1,
		},
		Scale: 2,
	}

	EdgeEnhanceMore = Kernel{
		Name: "edge_enhance_more",
		Size: 3,
		Weights: []int{
			-1, -1, -1,
			-1, 9, -1,
			-1, -1, -1,
		},
		Scale: 1,
	}

	Emboss = Kernel{
		Name: "emboss",
		Size: 3,
		Weights: []int{
			-1, 0, 0,
			0, 1, 0,
			0, 0, 0,
		},
		Scale:  1,
		Offset: 128,
	}
)

// Convolve applies k to every RGB channel of img.
//
// Pixels closer to the edge than the kernel radius are copied unchanged, and
// an image smaller than the kernel is returned as a plain copy. Kernel rows
// are matched bottom-up: row 0 weighs the row below the center pixel.
func Convolve(img *image.RGBA, k Kernel) *image.RGBA {
	dst := cloneRGB(img)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	half := k.Size / 2
	if w < k.Size || h < k.Size || k.Scale == 0 {
		return dst
	}

	weights := make([]float32, len(k.Weights))
	for i, wt := range k.Weights {
		weights[i] = float32(wt) / float32(k.Scale)
	}
	offset := float32(k.Offset)

	for y := half; y < h-half; y++ {
		for x := half; x < w-half; x++ {
			var sum [3]float32
			for ky := 0; ky < k.Size; ky++ {
				sy := y + half - ky
				row := sy * img.Stride
				for kx := 0; kx < k.Size; kx++ {
					wt := weights[ky*k.Size+kx]
					if wt == 0 {
						continue
					}
					si := row + (x+kx-half)*4
					sum[0] += wt * float32(img.Pix[si])
					sum[1] += wt * float32(img.Pix[si+1])
					sum[2] += wt * float32(img.Pix[si+2])
				}
			}
			di := y*dst.Stride + x*4
			dst.Pix[di] = round8(sum[0] + offset)
			dst.Pix[di+1] = round8(sum[1] + offset)
			dst.Pix[di+2] = round8(sum[2] + offset)
		}
	}
	return dst
}

// round8 clamps v to 0..255 and rounds half up.
func round8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
