package scan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roman-kulish/wardriver/internal/telemetry"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Cycle is one scan cycle delivered by the host: the position fix at the time
// of the scan and every access point currently visible.
type Cycle struct {
	Received     time.Time           // When the cycle was read from the host
	Position     *telemetry.Position // Nil when the host reported no GPS data at all
	AccessPoints []wifi.AccessPoint
	Skipped      []error // Access points dropped from the cycle, one error each
}

// cycleData is the host wire format, one JSON object per line:
//
//	{"gps":{"Latitude":45.1,"Longitude":9.2,"Altitude":120},
//	 "access_points":[{"mac":"aa:bb:..","hostname":"Cafe","encryption":"WPA2",
//	   "cipher":"CCMP","authentication":"PSK","channel":6,"rssi":-70,
//	   "first_seen":"2024-05-01T10:11:12.123456789+02:00"}]}
type cycleData struct {
	GPS          *positionData     `json:"gps"`
	AccessPoints []accessPointData `json:"access_points"`
}

type positionData struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
}

type accessPointData struct {
	MAC            string `json:"mac"`
	Hostname       string `json:"hostname"`
	Encryption     string `json:"encryption"`
	Cipher         string `json:"cipher"`
	Authentication string `json:"authentication"`
	Channel        int    `json:"channel"`
	RSSI           int    `json:"rssi"`
	FirstSeen      string `json:"first_seen"`
}

var firstSeenLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.DateTime,
}

// ParseCycle decodes a single line of host output. An access point without a
// MAC or with an unreadable first_seen is left out and reported in Skipped;
// only a line that is not a cycle at all is an error.
func ParseCycle(line []byte, received time.Time) (*Cycle, error) {
	var data cycleData
	if err := json.Unmarshal(line, &data); err != nil {
		return nil, fmt.Errorf("decoding cycle: %w", err)
	}

	c := Cycle{
		Received:     received,
		AccessPoints: make([]wifi.AccessPoint, 0, len(data.AccessPoints)),
	}

	if data.GPS != nil {
		c.Position = &telemetry.Position{
			Timestamp: received,
			Latitude:  data.GPS.Latitude,
			Longitude: data.GPS.Longitude,
			Altitude:  data.GPS.Altitude,
		}
	}

	for i, ap := range data.AccessPoints {
		if ap.MAC == "" {
			c.Skipped = append(c.Skipped, fmt.Errorf("access point %d: missing mac", i))
			continue
		}

		firstSeen, err := parseFirstSeen(ap.FirstSeen)
		if err != nil {
			c.Skipped = append(c.Skipped, fmt.Errorf("access point %s: %w", ap.MAC, err))
			continue
		}

		c.AccessPoints = append(c.AccessPoints, wifi.AccessPoint{
			MAC:            ap.MAC,
			Hostname:       ap.Hostname,
			Encryption:     ap.Encryption,
			Cipher:         ap.Cipher,
			Authentication: ap.Authentication,
			Channel:        ap.Channel,
			RSSI:           ap.RSSI,
			FirstSeen:      firstSeen,
		})
	}

	return &c, nil
}

func parseFirstSeen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range firstSeenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid first_seen %q", s)
}
