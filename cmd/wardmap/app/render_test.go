package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRenderer_Points(t *testing.T) {
	m := testMapData()

	renderer := NewMapRenderer(RenderConfig{Size: 400, ColorTheme: ThermalTheme, NoAnnotations: true})
	img, err := renderer.Render(m)
	require.NoError(t, err)

	proj := NewProjection(m, 400)
	assert.Equal(t, proj.Width, img.Bounds().Dx())
	assert.Equal(t, proj.Height, img.Bounds().Dy())

	colorMap := NewColorMapper(ThermalTheme, m.Histogram.Bounds())
	for _, p := range m.Points {
		x, y := proj.Point(p.Latitude, p.Longitude)
		assert.Equal(t, colorMap.Color(p.RSSI), img.RGBAAt(x, y), "point %s", p.MAC)
	}

	assert.Equal(t, backgroundColor, img.RGBAAt(0, 0))
}

func TestMapRenderer_Annotations(t *testing.T) {
	m := testMapData()

	renderer := NewMapRenderer(RenderConfig{Size: 400, Location: time.UTC})
	img, err := renderer.Render(m)
	require.NoError(t, err)

	proj := NewProjection(m, 400)
	assert.Equal(t, proj.Width+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())
	assert.Equal(t, proj.Height+defaultTopBorder+defaultBottomBorder, img.Bounds().Dy())

	// strongest color at the top of the legend
	colorMap := NewColorMapper(DefaultTheme, m.Histogram.Bounds())
	legendX := defaultLeftBorder + proj.Width + legendMargin
	assert.Equal(t, colorMap.Normalized(1), img.RGBAAt(legendX, defaultTopBorder))
}

func TestMapRenderer_Empty(t *testing.T) {
	_, err := NewMapRenderer(RenderConfig{}).Render(NewMapData())
	assert.Error(t, err)
}

func TestCalculateNiceDegreeStep(t *testing.T) {
	tests := []struct {
		span   float64
		pixels int
		want   float64
	}{
		{span: 0.011, pixels: 150, want: 0.02},
		{span: 0.011, pixels: 1500, want: 0.002},
		{span: 0.5, pixels: 600, want: 0.2},
		{span: 400, pixels: 150, want: 90},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calculateNiceDegreeStep(tt.span, tt.pixels))
	}
}

func TestFormatDegrees(t *testing.T) {
	assert.Equal(t, "45.005°", formatDegrees(45.005, 0.005))
	assert.Equal(t, "9.10°", formatDegrees(9.1, 0.02))
	assert.Equal(t, "10°", formatDegrees(10, 5))
}
