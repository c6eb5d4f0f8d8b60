package telemetry

import "testing"

func ptr(f float64) *float64 { return &f }

func TestPosition_HasFix(t *testing.T) {
	testCases := []struct {
		name string
		pos  *Position
		want bool
	}{
		{"nil position", nil, false},
		{"missing latitude", &Position{Longitude: ptr(9)}, false},
		{"missing longitude", &Position{Latitude: ptr(45)}, false},
		{"zero latitude", &Position{Latitude: ptr(0), Longitude: ptr(9)}, false},
		{"zero longitude", &Position{Latitude: ptr(45), Longitude: ptr(0)}, false},
		{"both zero", &Position{Latitude: ptr(0), Longitude: ptr(0)}, false},
		{"valid fix", &Position{Latitude: ptr(45), Longitude: ptr(9)}, true},
		{"valid fix without altitude", &Position{Latitude: ptr(-33.9), Longitude: ptr(151.2)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pos.HasFix(); got != tc.want {
				t.Errorf("HasFix() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPosition_AltitudeOrZero(t *testing.T) {
	var nilPos *Position
	if got := nilPos.AltitudeOrZero(); got != 0 {
		t.Errorf("expected 0 for nil position, got %f", got)
	}
	if got := (&Position{Altitude: ptr(112.5)}).AltitudeOrZero(); got != 112.5 {
		t.Errorf("expected 112.5, got %f", got)
	}
}
