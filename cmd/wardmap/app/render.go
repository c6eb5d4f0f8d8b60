package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 9.0
	tickMarkLength = 5
	pixelsPerLabel = 150.0
	pointRadius    = 3
	legendWidth    = 16
	legendMargin   = 12

	defaultTopBorder    = 40
	defaultLeftBorder   = 110
	defaultBottomBorder = 40
	defaultRightBorder  = 110

	defaultDatetimeFormat = time.DateTime
)

var backgroundColor = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff}

// BorderConfig defines the sizes of white space around the map
type BorderConfig struct {
	Top    int // Longitude scale
	Left   int // Latitude scale
	Bottom int // Information bar
	Right  int // Legend
}

// RenderConfig holds all configuration options for map rendering
type RenderConfig struct {
	Size           int            // Longest side of the plot area in pixels
	DatetimeFormat string         // Format of the time range in the info bar
	Location       *time.Location // Timezone for time display
	FontSize       float64
	ColorTheme     ColorTheme
	NoAnnotations  bool
	BorderConfig   BorderConfig
}

// MapRenderer draws observations as dots colored by signal strength
type MapRenderer struct {
	config RenderConfig
}

// NewMapRenderer creates a new map renderer with the given configuration
func NewMapRenderer(config RenderConfig) *MapRenderer {
	if config.Size <= 0 {
		config.Size = defaultSize
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}

	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &MapRenderer{config: config}
}

// Render creates an image of the map data with annotations
func (r *MapRenderer) Render(m *MapData) (*image.RGBA, error) {
	if m.Empty() {
		return nil, fmt.Errorf("no observations to plot")
	}

	proj := NewProjection(m, r.config.Size)
	borders := r.config.BorderConfig

	img := image.NewRGBA(image.Rect(0, 0,
		proj.Width+borders.Left+borders.Right,
		proj.Height+borders.Top+borders.Bottom,
	))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(borders.Left, borders.Top, borders.Left+proj.Width, borders.Top+proj.Height)
	draw.Draw(img, area, image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	colorMap := NewColorMapper(r.config.ColorTheme, m.Histogram.Bounds())

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(annotatorConfig{
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontSize:       r.config.FontSize,
			Borders:        borders,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, area, proj, m, colorMap); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderPoints(img, area, proj, m, colorMap)

	return img, nil
}

func (r *MapRenderer) renderPoints(img *image.RGBA, area image.Rectangle, proj *Projection, m *MapData, colorMap *ColorMapper) {
	for _, p := range m.ByStrength() {
		x, y := proj.Point(p.Latitude, p.Longitude)
		fillDisc(img, area, area.Min.X+x, area.Min.Y+y, pointRadius, colorMap.Color(p.RSSI))
	}
}

func fillDisc(img *image.RGBA, clip image.Rectangle, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			if pt := image.Pt(cx+dx, cy+dy); pt.In(clip) {
				img.SetRGBA(pt.X, pt.Y, c)
			}
		}
	}
}

type annotatorConfig struct {
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, proj *Projection, m *MapData, colorMap *ColorMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawLongitudeScale(img, area, proj); err != nil {
		return fmt.Errorf("drawing longitude scale: %w", err)
	}
	if err := a.drawLatitudeScale(img, area, proj); err != nil {
		return fmt.Errorf("drawing latitude scale: %w", err)
	}
	if err := a.drawLegend(img, area, colorMap); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	if err := a.drawInfoBar(img, area, m, colorMap); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawLongitudeScale(img *image.RGBA, area image.Rectangle, proj *Projection) error {
	step := calculateNiceDegreeStep(proj.MaxLon-proj.MinLon, proj.Width)
	textY := area.Min.Y - tickMarkLength - a.fontHeight()/2

	for i := math.Ceil(proj.MinLon / step); i*step <= proj.MaxLon; i++ {
		lon := i * step
		x := area.Min.X + proj.X(lon)

		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatDegrees(lon, step)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing longitude label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawLatitudeScale(img *image.RGBA, area image.Rectangle, proj *Projection) error {
	step := calculateNiceDegreeStep(proj.MaxLat-proj.MinLat, proj.Height)
	descent := a.fontFace.Metrics().Descent.Round()

	for i := math.Ceil(proj.MinLat / step); i*step <= proj.MaxLat; i++ {
		lat := i * step
		y := area.Min.Y + proj.Y(lat)

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatDegrees(lat, step)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(area.Min.X-tickMarkLength-3-width.Round(), y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing latitude label: %w", err)
		}
	}
	return nil
}

// drawLegend draws the color scale, strongest signal on top.
func (a *annotator) drawLegend(img *image.RGBA, area image.Rectangle, colorMap *ColorMapper) error {
	left := area.Max.X + legendMargin
	height := area.Dy()

	for y := 0; y < height; y++ {
		c := colorMap.Normalized(1 - float64(y)/float64(max(1, height-1)))
		for x := left; x < left+legendWidth; x++ {
			img.SetRGBA(x, area.Min.Y+y, c)
		}
	}

	bounds := colorMap.Bounds()
	descent := a.fontFace.Metrics().Descent.Round()
	labels := []struct {
		value float64
		y     int
	}{
		{bounds.Max, area.Min.Y + a.fontHeight() - descent},
		{bounds.Min, area.Max.Y - descent},
	}
	for _, l := range labels {
		pt := freetype.Pt(left+legendWidth+4, l.y)
		if _, err := a.context.DrawString(fmt.Sprintf("%.0f dBm", l.value), pt); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, area image.Rectangle, m *MapData, colorMap *ColorMapper) error {
	var sb strings.Builder

	bounds := colorMap.Bounds()
	sb.WriteString(fmt.Sprintf("Sessions: %s; Networks: %s; Observations: %s; ",
		humanize.Comma(int64(m.Sessions())),
		humanize.Comma(int64(m.Networks())),
		humanize.Comma(int64(len(m.Points)))))
	sb.WriteString(fmt.Sprintf("Time: %s - %s; ",
		m.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		m.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString(fmt.Sprintf("Signal: %.0f to %.0f dBm, mean %.1f dBm", bounds.Min, bounds.Max, bounds.Mean))

	descent := a.fontFace.Metrics().Descent.Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-a.fontHeight())/2 - descent

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(area.Min.X, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// Helper functions

func calculateNiceDegreeStep(span float64, pixels int) float64 {
	steps := []float64{
		0.0001, 0.0002, 0.0005,
		0.001, 0.002, 0.005,
		0.01, 0.02, 0.05,
		0.1, 0.2, 0.5,
		1, 2, 5,
		10, 20, 45,
	}

	desiredSteps := max(1, float64(pixels)/pixelsPerLabel)
	targetStep := span / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			return step
		}
	}
	return 90
}

func formatDegrees(v, step float64) string {
	decimals := max(0, int(math.Ceil(-math.Log10(step))))
	return fmt.Sprintf("%.*f°", decimals, v)
}
