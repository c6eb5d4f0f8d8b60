package telemetry

import (
	"time"
)

// Position is a position fix as reported by the host GPS
type Position struct {
	Timestamp time.Time `json:"timestamp"`          // Timestamp of the fix
	Latitude  *float64  `json:"latitude,omitempty"`  // GPS latitude in degrees
	Longitude *float64  `json:"longitude,omitempty"` // GPS longitude in degrees
	Altitude  *float64  `json:"altitude,omitempty"`  // Altitude in meters
}

// HasFix reports whether the position can be used to geotag observations.
// A zero latitude or longitude is an un-acquired fix, not a point on the
// equator or the prime meridian.
func (p *Position) HasFix() bool {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return false
	}
	return *p.Latitude != 0 && *p.Longitude != 0
}

// AltitudeOrZero returns the altitude, or 0 when the fix carries none.
func (p *Position) AltitudeOrZero() float64 {
	if p == nil || p.Altitude == nil {
		return 0
	}
	return *p.Altitude
}
