package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme names a predefined mapping from normalized signal strength to
// color, weak signals first.
type ColorTheme string

const (
	EnhancedTheme  ColorTheme = "enhanced"  // Black to blue to cyan to yellow to red
	ClassicTheme   ColorTheme = "classic"   // Blue to red
	GrayscaleTheme ColorTheme = "grayscale" // Dark to light gray
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white

	DefaultTheme = EnhancedTheme

	DefaultColorMapSize = 256
)

var validThemes = map[ColorTheme]struct{}{
	EnhancedTheme:  {},
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
}

// gradient interpolates between color stops in the CIE L*a*b* space.
type gradient []struct {
	color colorful.Color
	pos   float64
}

func (g gradient) at(t float64) colorful.Color {
	for i := 1; i < len(g); i++ {
		if t <= g[i].pos {
			lo, hi := g[i-1], g[i]
			return lo.color.BlendLab(hi.color, (t-lo.pos)/(hi.pos-lo.pos)).Clamped()
		}
	}
	return g[len(g)-1].color
}

var (
	enhancedGradient = gradient{
		{colorful.Hsv(240, 1, 0.15), 0},
		{colorful.Hsv(240, 1, 0.9), 0.25},
		{colorful.Hsv(180, 1, 0.9), 0.5},
		{colorful.Hsv(60, 1, 1), 0.75},
		{colorful.Hsv(0, 1, 1), 1},
	}
	thermalGradient = gradient{
		{colorful.Color{}, 0},
		{colorful.Color{R: 1}, 0.33},
		{colorful.Color{R: 1, G: 1}, 0.66},
		{colorful.Color{R: 1, G: 1, B: 1}, 1},
	}
)

func themeFunc(theme ColorTheme) func(float64) colorful.Color {
	switch theme {
	case ClassicTheme:
		return func(t float64) colorful.Color {
			return colorful.Hsv(240-(t*240), 0.9+(t*0.1), 0.4+(t*0.6))
		}

	case GrayscaleTheme:
		return func(t float64) colorful.Color {
			v := 0.8 - (math.Pow(t, 0.7) * 0.8)
			return colorful.Color{R: v, G: v, B: v}
		}

	case JungleTheme:
		return func(t float64) colorful.Color {
			return colorful.Hsv(120-(t*60), 1, 0.3+(math.Pow(t, 0.6)*0.7))
		}

	case ThermalTheme:
		return thermalGradient.at

	case MarineTheme:
		return func(t float64) colorful.Color {
			return colorful.Hsv(240-(t*60), 1-(t*0.8), 0.3+(math.Pow(t, 0.6)*0.7))
		}

	default:
		return enhancedGradient.at
	}
}

// ColorMapper maps RSSI readings to colors through a pre-computed table
// spanning the signal bounds. Readings outside the bounds are clamped.
type ColorMapper struct {
	colorMap []color.RGBA
	bounds   SignalBounds
	theme    ColorTheme
}

// NewColorMapper creates a mapper with DefaultColorMapSize colors.
func NewColorMapper(theme ColorTheme, bounds SignalBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

func NewColorMapperWithSize(theme ColorTheme, bounds SignalBounds, size int) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	fn := themeFunc(theme)

	cm := ColorMapper{
		colorMap: make([]color.RGBA, size),
		bounds:   bounds,
		theme:    theme,
	}
	for i := range cm.colorMap {
		r, g, b := fn(float64(i) / float64(size-1)).Clamped().RGB255()
		cm.colorMap[i] = color.RGBA{R: r, G: g, B: b, A: 0xff}
	}
	return &cm
}

// Color returns the color of a reading
func (cm *ColorMapper) Color(rssi int) color.RGBA {
	return cm.colorMap[cm.index(float64(rssi))]
}

// Normalized returns the color at position t in [0, 1] of the table
func (cm *ColorMapper) Normalized(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return cm.colorMap[int(math.Round(t*float64(len(cm.colorMap)-1)))]
}

func (cm *ColorMapper) index(rssi float64) int {
	span := cm.bounds.Max - cm.bounds.Min
	if span <= 0 {
		return len(cm.colorMap) - 1
	}

	t := (rssi - cm.bounds.Min) / span
	t = math.Max(0, math.Min(1, t))
	return int(math.Round(t * float64(len(cm.colorMap)-1)))
}

// Bounds returns the signal range covered by the table
func (cm *ColorMapper) Bounds() SignalBounds {
	return cm.bounds
}

// Theme returns the color theme name
func (cm *ColorMapper) Theme() ColorTheme {
	return cm.theme
}
