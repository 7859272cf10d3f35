// Package styles maps style names to fixed filter pipelines and to the text
// prompts used when the same style is requested from a diffusion backend.
package styles

import "sort"

// Style names a filter pipeline.
type Style string

// Known styles. Anything else behaves as Default.
const (
	OilPainting Style = "oil_painting"
	Anime       Style = "anime"
	PixelArt    Style = "pixel_art"
	Watercolor  Style = "watercolor"
	VanGogh     Style = "van_gogh"
	Cyberpunk   Style = "cyberpunk"
	Default     Style = "default"
)

// All lists the named styles, Default last.
var All = []Style{OilPainting, Anime, PixelArt, Watercolor, VanGogh, Cyberpunk, Default}

// Parse returns the Style named exactly by name. Names are case sensitive
// and not trimmed: "Anime" or " anime" map to Default like any other
// unknown name. The second result reports whether name was recognized.
func Parse(name string) (Style, bool) {
	if _, ok := pipelines[Style(name)]; ok {
		return Style(name), true
	}
	return Default, false
}

// Names returns the style names sorted alphabetically.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, s := range All {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return names
}

func (s Style) String() string {
	return string(s)
}
