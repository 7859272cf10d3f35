package sdruntime

import (
	"fmt"
	"image"
)

// Img2ImgParams describes one image-to-image run.
type Img2ImgParams struct {
	InitImage      *image.RGBA // source image, already at working resolution
	Prompt         string
	NegativePrompt string

	// Strength is the fraction of the schedule re-noised from InitImage.
	// Nominally 0..1; not range checked.
	Strength float64

	// GuidanceScale is the classifier-free guidance weight. Nominally >= 0;
	// not range checked.
	GuidanceScale float64

	Steps int
	Seed  int64 // negative for random
}

// Parameter limits.
const (
	MinImageSize      = 128
	MaxImageSize      = 2048
	ImageSizeMultiple = 8

	MinSteps = 1

	MaxPromptLength = 1000
)

// ValidateParams checks what the runtime cannot work without: a usable init
// image, a prompt, and at least one step. Strength and guidance are passed
// through as given; see RangeWarnings.
func ValidateParams(p Img2ImgParams) error {
	if err := ValidatePrompt(p.Prompt); err != nil {
		return err
	}
	if len(p.NegativePrompt) > MaxPromptLength {
		return fmt.Errorf("%w: negative prompt length %d exceeds maximum %d",
			ErrInvalidParams, len(p.NegativePrompt), MaxPromptLength)
	}

	if p.InitImage == nil {
		return fmt.Errorf("%w: init image is required", ErrInvalidParams)
	}
	for _, dim := range []struct {
		name string
		v    int
	}{{"width", p.InitImage.Rect.Dx()}, {"height", p.InitImage.Rect.Dy()}} {
		if dim.v < MinImageSize || dim.v > MaxImageSize {
			return fmt.Errorf("%w: %s %d must be between %d and %d",
				ErrInvalidParams, dim.name, dim.v, MinImageSize, MaxImageSize)
		}
		if dim.v%ImageSizeMultiple != 0 {
			return fmt.Errorf("%w: %s %d must be divisible by %d",
				ErrInvalidParams, dim.name, dim.v, ImageSizeMultiple)
		}
	}

	if p.Steps < MinSteps {
		return fmt.Errorf("%w: steps %d must be at least %d", ErrInvalidParams, p.Steps, MinSteps)
	}
	return nil
}

// RangeWarnings lists knobs outside their nominal range. They are reported,
// not rejected.
func RangeWarnings(strength, guidance float64) []string {
	var warnings []string
	if strength < 0 || strength > 1 {
		warnings = append(warnings, fmt.Sprintf("strength %.3g is outside the nominal range [0, 1]", strength))
	}
	if guidance < 0 {
		warnings = append(warnings, fmt.Sprintf("guidance scale %.3g is negative", guidance))
	}
	return warnings
}
