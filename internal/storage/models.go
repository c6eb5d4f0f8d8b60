package storage

import (
	"database/sql"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

type sessionData struct {
	ID        int64
	CreatedAt sqliteTime
	Uploaded  bool
}

func (d *sessionData) toSession() wifi.Session {
	return wifi.Session{
		ID:        d.ID,
		CreatedAt: d.CreatedAt.Time,
		Uploaded:  d.Uploaded,
	}
}

type observationData struct {
	ID         int64
	SessionID  int64
	NetworkID  int64
	MAC        string
	SSID       string
	AuthMode   string
	Latitude   float64
	Longitude  float64
	Altitude   sql.NullFloat64
	Accuracy   int
	Channel    int
	RSSI       int
	ObservedAt sqliteTime
}

func (d *observationData) toView() wifi.ObservationView {
	return wifi.ObservationView{
		Observation: wifi.Observation{
			ID:         d.ID,
			SessionID:  d.SessionID,
			NetworkID:  d.NetworkID,
			AuthMode:   d.AuthMode,
			Latitude:   d.Latitude,
			Longitude:  d.Longitude,
			Altitude:   d.Altitude.Float64,
			Accuracy:   d.Accuracy,
			Channel:    d.Channel,
			RSSI:       d.RSSI,
			ObservedAt: d.ObservedAt.Time,
		},
		MAC:  d.MAC,
		SSID: d.SSID,
	}
}

type networkSightingData struct {
	ID               int64
	MAC              string
	SSID             string
	FirstSeen        sqliteTime
	FirstSeenSession sql.NullInt64
	LastSeen         sqliteTime
	LastSeenSession  sql.NullInt64
	Observations     int
}

func (d *networkSightingData) toSighting() wifi.NetworkSighting {
	return wifi.NetworkSighting{
		Network: wifi.Network{
			ID:   d.ID,
			MAC:  d.MAC,
			SSID: d.SSID,
		},
		FirstSeen:        d.FirstSeen.Time,
		FirstSeenSession: d.FirstSeenSession.Int64,
		LastSeen:         d.LastSeen.Time,
		LastSeenSession:  d.LastSeenSession.Int64,
		Observations:     d.Observations,
	}
}
