package export

import (
	"strconv"
	"time"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

// RadioType is the technology tag written in the Type column.
const RadioType = "WIFI"

// TimestampFormat is the layout of the FirstSeen column, always in UTC.
const TimestampFormat = "2006-01-02 15:04:05"

// Header lists the export columns in order.
var Header = []string{
	"MAC",
	"SSID",
	"AuthMode",
	"FirstSeen",
	"Channel",
	"RSSI",
	"CurrentLatitude",
	"CurrentLongitude",
	"AltitudeMeters",
	"AccuracyMeters",
	"Type",
}

// Record is one CSV row. The field order matches Header.
type Record struct {
	MAC              string    `csv:"MAC"`
	SSID             string    `csv:"SSID"`
	AuthMode         string    `csv:"AuthMode"`
	FirstSeen        Timestamp `csv:"FirstSeen"`
	Channel          int       `csv:"Channel"`
	RSSI             int       `csv:"RSSI"`
	CurrentLatitude  Decimal   `csv:"CurrentLatitude"`
	CurrentLongitude Decimal   `csv:"CurrentLongitude"`
	AltitudeMeters   Decimal   `csv:"AltitudeMeters"`
	AccuracyMeters   int       `csv:"AccuracyMeters"`
	Type             string    `csv:"Type"`
}

// NewRecord flattens an observation into a row.
func NewRecord(o *wifi.ObservationView) Record {
	return Record{
		MAC:              o.MAC,
		SSID:             o.SSID,
		AuthMode:         o.AuthMode,
		FirstSeen:        Timestamp{o.ObservedAt},
		Channel:          o.Channel,
		RSSI:             o.RSSI,
		CurrentLatitude:  Decimal(o.Latitude),
		CurrentLongitude: Decimal(o.Longitude),
		AltitudeMeters:   Decimal(o.Altitude),
		AccuracyMeters:   o.Accuracy,
		Type:             RadioType,
	}
}

// Reading converts a row back into a store input, keeping its original timestamp.
func (r *Record) Reading() *wifi.Reading {
	return &wifi.Reading{
		MAC:        r.MAC,
		SSID:       r.SSID,
		AuthMode:   r.AuthMode,
		Latitude:   float64(r.CurrentLatitude),
		Longitude:  float64(r.CurrentLongitude),
		Altitude:   float64(r.AltitudeMeters),
		Accuracy:   r.AccuracyMeters,
		Channel:    r.Channel,
		RSSI:       r.RSSI,
		ObservedAt: r.FirstSeen.Time,
	}
}

// Timestamp renders as UTC "YYYY-MM-DD HH:MM:SS".
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.UTC().Format(TimestampFormat)), nil
}

func (t *Timestamp) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := time.Parse(TimestampFormat, string(text))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Decimal is a coordinate or altitude written in plain decimal notation,
// never with an exponent.
type Decimal float64

func (d Decimal) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(d), 'f', -1, 64), nil
}

func (d *Decimal) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}

	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return err
	}
	*d = Decimal(f)
	return nil
}
