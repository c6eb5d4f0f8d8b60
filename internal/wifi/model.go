package wifi

import (
	"time"
)

// Session represents a single scanning run. Observations recorded while the
// scanner is up belong to the same session.
type Session struct {
	ID        int64     `json:"id"`        // Unique identifier for the session
	CreatedAt time.Time `json:"createdAt"` // When the scanning session began (UTC)
	Uploaded  bool      `json:"uploaded"`  // Whether the session was accepted by the mapping service
}

// Network is the identity of a radio: the pair of its hardware address and the
// name it advertised. The same MAC under a different SSID is a different network.
type Network struct {
	ID   int64  `json:"id"`
	MAC  string `json:"mac"`
	SSID string `json:"ssid"` // Empty for hidden networks
}

// Reading carries everything needed to record a sighting of a network.
type Reading struct {
	MAC        string    `json:"mac"`
	SSID       string    `json:"ssid"`
	AuthMode   string    `json:"authMode"`   // Capability descriptor, e.g. [WPA2][CCMP][PSK]
	Latitude   float64   `json:"latitude"`   // Degrees
	Longitude  float64   `json:"longitude"`  // Degrees
	Altitude   float64   `json:"altitude"`   // Meters
	Accuracy   int       `json:"accuracy"`   // Accuracy radius in meters
	Channel    int       `json:"channel"`    // Radio channel
	RSSI       int       `json:"rssi"`       // Signal strength in dBm
	ObservedAt time.Time `json:"observedAt"` // Zero value lets the store assign the current time
}

// Observation is one recorded sighting of a Network within a Session.
type Observation struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"sessionID"`
	NetworkID  int64     `json:"networkID"`
	AuthMode   string    `json:"authMode"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   float64   `json:"altitude"`
	Accuracy   int       `json:"accuracy"`
	Channel    int       `json:"channel"`
	RSSI       int       `json:"rssi"`
	ObservedAt time.Time `json:"observedAt"`
}

// ObservationView is an Observation with the identity of its network resolved.
type ObservationView struct {
	Observation
	MAC  string `json:"mac"`
	SSID string `json:"ssid"`
}

// SessionSummary aggregates a session for reporting.
type SessionSummary struct {
	Session
	Observations int `json:"observations"`
	Networks     int `json:"networks"` // Distinct networks seen in the session
}

// NetworkSighting describes when and in which sessions a network was first and last seen.
type NetworkSighting struct {
	Network
	FirstSeen        time.Time `json:"firstSeen"`
	FirstSeenSession int64     `json:"firstSeenSession"`
	LastSeen         time.Time `json:"lastSeen"`
	LastSeenSession  int64     `json:"lastSeenSession"`
	Observations     int       `json:"observations"`
}

// MapPoint is a flattened observation used to plot networks on a map.
type MapPoint struct {
	SessionID  int64     `json:"sessionID"`
	MAC        string    `json:"mac"`
	SSID       string    `json:"ssid"`
	AuthMode   string    `json:"authMode"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RSSI       int       `json:"rssi"`
	ObservedAt time.Time `json:"observedAt"`
}

// Totals holds store-wide counters. Sessions without observations are not counted.
type Totals struct {
	Networks         int `json:"networks"`
	Sessions         int `json:"sessions"`
	UploadedSessions int `json:"uploadedSessions"`
	Observations     int `json:"observations"`
}
