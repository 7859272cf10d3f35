package styles

import (
	"image"

	"nftgen/imaging"
)

// Tuning constants for the pipelines.
const (
	OilColorFactor    = 1.3
	OilContrastFactor = 1.2

	AnimePosterizeBits  = 4
	AnimeColorFactor    = 1.4
	AnimeContrastFactor = 1.3

	PixelArtBlockSize     = 8
	PixelArtPosterizeBits = 3

	WatercolorBlurRadius       = 1.0
	WatercolorBrightnessFactor = 0.9
	WatercolorColorFactor      = 1.2

	VanGoghColorFactor    = 1.6
	VanGoghContrastFactor = 1.4

	CyberpunkRedFactor      = 0.8
	CyberpunkGreenFactor    = 0.9
	CyberpunkBlueFactor     = 1.3
	CyberpunkContrastFactor = 1.3

	DefaultColorFactor = 1.1
)

// Step is one named transformation in a pipeline.
type Step struct {
	Name  string
	Apply func(*image.RGBA) *image.RGBA
}

func kernelStep(k imaging.Kernel) Step {
	return Step{Name: k.Name, Apply: func(img *image.RGBA) *image.RGBA { return imaging.Convolve(img, k) }}
}

func colorStep(f float64) Step {
	return Step{Name: "color", Apply: func(img *image.RGBA) *image.RGBA { return imaging.Color(img, f) }}
}

func contrastStep(f float64) Step {
	return Step{Name: "contrast", Apply: func(img *image.RGBA) *image.RGBA { return imaging.Contrast(img, f) }}
}

func brightnessStep(f float64) Step {
	return Step{Name: "brightness", Apply: func(img *image.RGBA) *image.RGBA { return imaging.Brightness(img, f) }}
}

func posterizeStep(bits int) Step {
	return Step{Name: "posterize", Apply: func(img *image.RGBA) *image.RGBA { return imaging.Posterize(img, bits) }}
}

var pipelines = map[Style][]Step{
	OilPainting: {
		kernelStep(imaging.SmoothMore),
		kernelStep(imaging.EdgeEnhance),
		colorStep(OilColorFactor),
		contrastStep(OilContrastFactor),
	},
	Anime: {
		posterizeStep(AnimePosterizeBits),
		colorStep(AnimeColorFactor),
		contrastStep(AnimeContrastFactor),
		kernelStep(imaging.EdgeEnhanceMore),
	},
	PixelArt: {
		{Name: "pixelate", Apply: func(img *image.RGBA) *image.RGBA {
			return imaging.Pixelate(img, PixelArtBlockSize)
		}},
		posterizeStep(PixelArtPosterizeBits),
	},
	Watercolor: {
		{Name: "gaussian_blur", Apply: func(img *image.RGBA) *image.RGBA {
			return imaging.GaussianBlur(img, WatercolorBlurRadius)
		}},
		brightnessStep(WatercolorBrightnessFactor),
		colorStep(WatercolorColorFactor),
	},
	VanGogh: {
		kernelStep(imaging.Emboss),
		kernelStep(imaging.EdgeEnhance),
		colorStep(VanGoghColorFactor),
		contrastStep(VanGoghContrastFactor),
	},
	Cyberpunk: {
		{Name: "channel_remap", Apply: CyberpunkRemap},
		contrastStep(CyberpunkContrastFactor),
	},
	Default: {
		colorStep(DefaultColorFactor),
	},
}

// Steps returns the ordered step names for s, for logging and listing.
func Steps(s Style) []string {
	steps := pipelines[s]
	if steps == nil {
		steps = pipelines[Default]
	}
	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = st.Name
	}
	return names
}

// Apply runs the pipeline for s over img and returns a new image of the same
// size. Unknown styles run the Default pipeline.
func Apply(img image.Image, s Style) *image.RGBA {
	steps, ok := pipelines[s]
	if !ok {
		steps = pipelines[Default]
	}
	out := imaging.ToRGB(img)
	for _, step := range steps {
		out = step.Apply(out)
	}
	return out
}

// CyberpunkRemap cools the image: red ×0.8, green ×0.9 and blue ×1.3 capped
// at 255, each truncated to an integer.
func CyberpunkRemap(img *image.RGBA) *image.RGBA {
	return imaging.ScaleChannels(img, CyberpunkRedFactor, CyberpunkGreenFactor, CyberpunkBlueFactor)
}
