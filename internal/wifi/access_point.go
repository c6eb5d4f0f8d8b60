package wifi

import (
	"strings"
	"time"
)

// HiddenSSID is the name the host scanner reports for networks that do not broadcast one.
const HiddenSSID = "<hidden>"

// AccessPoint is a single access point report delivered by the host scanner.
type AccessPoint struct {
	MAC            string    `json:"mac"`
	Hostname       string    `json:"hostname"` // Advertised name, HiddenSSID when hidden
	Encryption     string    `json:"encryption"`
	Cipher         string    `json:"cipher"`
	Authentication string    `json:"authentication"`
	Channel        int       `json:"channel"`
	RSSI           int       `json:"rssi"`
	FirstSeen      time.Time `json:"firstSeen"` // Zero when the host did not report it
}

// SSID returns the advertised name with hidden networks normalised to an empty string.
func (ap *AccessPoint) SSID() string {
	if ap.Hostname == HiddenSSID {
		return ""
	}
	return ap.Hostname
}

// Capabilities renders the encryption, cipher and authentication tags in that
// order, each bracketed and only when present, e.g. "[WPA2][CCMP][PSK]".
func (ap *AccessPoint) Capabilities() string {
	var sb strings.Builder
	for _, tag := range []string{ap.Encryption, ap.Cipher, ap.Authentication} {
		if tag == "" {
			continue
		}
		sb.WriteByte('[')
		sb.WriteString(tag)
		sb.WriteByte(']')
	}
	return sb.String()
}
