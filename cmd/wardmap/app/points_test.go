package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

func testPoints() []wifi.MapPoint {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	return []wifi.MapPoint{
		{SessionID: 1, MAC: "aa:bb:cc:dd:ee:01", SSID: "Cafe", Latitude: 45.0, Longitude: 9.0, RSSI: -40, ObservedAt: t0.Add(time.Minute)},
		{SessionID: 1, MAC: "aa:bb:cc:dd:ee:02", SSID: "", Latitude: 45.01, Longitude: 9.1, RSSI: -80, ObservedAt: t0},
		{SessionID: 2, MAC: "aa:bb:cc:dd:ee:01", SSID: "Cafe", Latitude: 45.005, Longitude: 9.05, RSSI: -60, ObservedAt: t0.Add(time.Hour)},
	}
}

func testMapData() *MapData {
	m := NewMapData()
	for _, p := range testPoints() {
		m.Update(p)
	}
	return m
}

func TestMapData_Update(t *testing.T) {
	m := testMapData()

	assert.False(t, m.Empty())
	assert.Len(t, m.Points, 3)
	assert.Equal(t, 2, m.Networks())
	assert.Equal(t, 2, m.Sessions())
	assert.Equal(t, 45.0, m.MinLat)
	assert.Equal(t, 45.01, m.MaxLat)
	assert.Equal(t, 9.0, m.MinLon)
	assert.Equal(t, 9.1, m.MaxLon)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), m.TimestampStart)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), m.TimestampEnd)
	assert.Equal(t, uint64(3), m.Histogram.Count())

	assert.True(t, NewMapData().Empty())
}

func TestMapData_ByStrength(t *testing.T) {
	m := testMapData()

	var rssi []int
	for _, p := range m.ByStrength() {
		rssi = append(rssi, p.RSSI)
	}
	assert.Equal(t, []int{-80, -60, -40}, rssi)
	assert.Equal(t, -40, m.Points[0].RSSI, "points keep their insertion order")
}

func TestProjection(t *testing.T) {
	m := testMapData()
	proj := NewProjection(m, 1000)

	assert.Equal(t, 1000, proj.Width, "the wider side spans the full size")
	assert.Greater(t, proj.Height, 100)
	assert.Less(t, proj.Height, 200)

	westX, southY := proj.Point(45.0, 9.0)
	eastX, northY := proj.Point(45.01, 9.1)
	assert.Less(t, westX, eastX)
	assert.Less(t, northY, southY)

	for _, p := range m.Points {
		x, y := proj.Point(p.Latitude, p.Longitude)
		assert.True(t, x >= 0 && x < proj.Width)
		assert.True(t, y >= 0 && y < proj.Height)
	}
}

func TestProjection_SinglePoint(t *testing.T) {
	m := NewMapData()
	m.Update(wifi.MapPoint{Latitude: -33.86, Longitude: 151.21, RSSI: -50})

	proj := NewProjection(m, 500)
	require.Less(t, proj.MinLat, proj.MaxLat)
	require.Less(t, proj.MinLon, proj.MaxLon)
	assert.Equal(t, 500, max(proj.Width, proj.Height))

	x, y := proj.Point(-33.86, 151.21)
	assert.InDelta(t, proj.Width/2, x, 2)
	assert.InDelta(t, proj.Height/2, y, 2)
}
