package app

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

const (
	minSpanDegrees = 0.001 // About 100m, so a single point still gets a map
	paddingRatio   = 0.05
)

// MapData accumulates observations for plotting
type MapData struct {
	Points                       []wifi.MapPoint
	MinLat, MaxLat               float64
	MinLon, MaxLon               float64
	TimestampStart, TimestampEnd time.Time
	Histogram                    *SignalHistogram

	networks map[networkKey]struct{}
	sessions map[int64]struct{}
}

type networkKey struct {
	mac, ssid string
}

func NewMapData() *MapData {
	return &MapData{
		MinLat:    math.MaxFloat64,
		MaxLat:    -math.MaxFloat64,
		MinLon:    math.MaxFloat64,
		MaxLon:    -math.MaxFloat64,
		Histogram: NewSignalHistogram(),
		networks:  make(map[networkKey]struct{}),
		sessions:  make(map[int64]struct{}),
	}
}

func (m *MapData) Update(p wifi.MapPoint) {
	m.MinLat = min(m.MinLat, p.Latitude)
	m.MaxLat = max(m.MaxLat, p.Latitude)
	m.MinLon = min(m.MinLon, p.Longitude)
	m.MaxLon = max(m.MaxLon, p.Longitude)

	if m.TimestampStart.IsZero() || m.TimestampStart.After(p.ObservedAt) {
		m.TimestampStart = p.ObservedAt
	}
	if m.TimestampEnd.IsZero() || m.TimestampEnd.Before(p.ObservedAt) {
		m.TimestampEnd = p.ObservedAt
	}

	m.Histogram.Add(p.RSSI)
	m.networks[networkKey{p.MAC, p.SSID}] = struct{}{}
	m.sessions[p.SessionID] = struct{}{}
	m.Points = append(m.Points, p)
}

func (m *MapData) Empty() bool {
	return len(m.Points) == 0
}

// Networks returns the number of distinct networks
func (m *MapData) Networks() int {
	return len(m.networks)
}

// Sessions returns the number of distinct sessions
func (m *MapData) Sessions() int {
	return len(m.sessions)
}

// ByStrength returns the points ordered from the weakest reading up, so that
// strong readings are drawn last.
func (m *MapData) ByStrength() []wifi.MapPoint {
	points := slices.Clone(m.Points)
	slices.SortStableFunc(points, func(a, b wifi.MapPoint) int {
		return cmp.Compare(a.RSSI, b.RSSI)
	})
	return points
}

// Projection is an equirectangular projection of the padded bounding box onto
// a Width x Height pixel area. Longitudes are scaled by the cosine of the
// center latitude so distances look right at city scale.
type Projection struct {
	Width, Height  int
	MinLat, MaxLat float64
	MinLon, MaxLon float64

	lonScale float64
	scale    float64 // Pixels per degree of latitude
}

// NewProjection fits the data into an area whose longest side is size pixels.
func NewProjection(m *MapData, size int) *Projection {
	minLat, maxLat := padSpan(m.MinLat, m.MaxLat)
	minLon, maxLon := padSpan(m.MinLon, m.MaxLon)

	lonScale := math.Cos((minLat + maxLat) / 2 * math.Pi / 180)
	spanX := (maxLon - minLon) * lonScale
	spanY := maxLat - minLat

	scale := float64(size) / max(spanX, spanY)

	return &Projection{
		Width:    max(1, int(math.Round(spanX*scale))),
		Height:   max(1, int(math.Round(spanY*scale))),
		MinLat:   minLat,
		MaxLat:   maxLat,
		MinLon:   minLon,
		MaxLon:   maxLon,
		lonScale: lonScale,
		scale:    scale,
	}
}

// Point returns the pixel of a coordinate, clamped to the area
func (p *Projection) Point(lat, lon float64) (int, int) {
	return min(max(p.X(lon), 0), p.Width-1), min(max(p.Y(lat), 0), p.Height-1)
}

// X returns the column of a longitude
func (p *Projection) X(lon float64) int {
	return int((lon - p.MinLon) * p.lonScale * p.scale)
}

// Y returns the row of a latitude
func (p *Projection) Y(lat float64) int {
	return int((p.MaxLat - lat) * p.scale)
}

func padSpan(lo, hi float64) (float64, float64) {
	if span := hi - lo; span < minSpanDegrees {
		center := (lo + hi) / 2
		lo, hi = center-minSpanDegrees/2, center+minSpanDegrees/2
	}

	pad := (hi - lo) * paddingRatio
	return lo - pad, hi + pad
}
