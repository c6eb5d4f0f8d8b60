package export

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

const headerLine = "MAC,SSID,AuthMode,FirstSeen,Channel,RSSI,CurrentLatitude,CurrentLongitude,AltitudeMeters,AccuracyMeters,Type"

func testObservations() []wifi.ObservationView {
	cest := time.FixedZone("CEST", 2*60*60)

	return []wifi.ObservationView{
		{
			Observation: wifi.Observation{
				ID:         1,
				AuthMode:   "[WPA2][CCMP][PSK]",
				Latitude:   45.4642,
				Longitude:  9.19,
				Altitude:   122.5,
				Accuracy:   10,
				Channel:    6,
				RSSI:       -70,
				ObservedAt: time.Date(2024, 5, 1, 10, 11, 12, 0, cest),
			},
			MAC:  "aa:bb:cc:dd:ee:ff",
			SSID: "Cafe",
		},
		{
			Observation: wifi.Observation{
				ID:         2,
				AuthMode:   "",
				Latitude:   -33.8688,
				Longitude:  151.2093,
				Accuracy:   10,
				Channel:    11,
				RSSI:       -88,
				ObservedAt: time.Date(2024, 5, 1, 8, 12, 0, 0, time.UTC),
			},
			MAC:  "11:22:33:44:55:66",
			SSID: "Bar, Grill",
		},
	}
}

func TestEncoder_EncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(Metadata{}).EncodeCSV(&buf, testObservations()))

	want := headerLine + "\n" +
		"aa:bb:cc:dd:ee:ff,Cafe,[WPA2][CCMP][PSK],2024-05-01 08:11:12,6,-70,45.4642,9.19,122.5,10,WIFI\n" +
		"11:22:33:44:55:66,\"Bar, Grill\",,2024-05-01 08:12:00,11,-88,-33.8688,151.2093,0,10,WIFI\n"
	assert.Equal(t, want, buf.String())
}

func TestEncoder_EncodeCSV_PlainDecimals(t *testing.T) {
	observations := []wifi.ObservationView{{
		Observation: wifi.Observation{
			AuthMode:   "[OPEN]",
			Latitude:   0.00001,
			Longitude:  -0.000001,
			Altitude:   12345678.5,
			Accuracy:   10,
			Channel:    1,
			RSSI:       -50,
			ObservedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		},
		MAC: "aa:bb:cc:dd:ee:01",
	}}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(Metadata{}).EncodeCSV(&buf, observations))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "aa:bb:cc:dd:ee:01,,[OPEN],2024-05-01 08:00:00,1,-50,0.00001,-0.000001,12345678.5,10,WIFI", lines[1])

	dec, err := NewDecoder(strings.NewReader(buf.String()))
	require.NoError(t, err)

	var rec Record
	require.NoError(t, dec.Decode(&rec))
	assert.Equal(t, 0.00001, rec.Reading().Latitude)
	assert.Equal(t, -0.000001, rec.Reading().Longitude)
}

func TestEncoder_EncodeCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(Metadata{}).EncodeCSV(&buf, nil))
	assert.Equal(t, headerLine+"\n", buf.String())
}

func TestEncoder_EncodeWigle(t *testing.T) {
	meta := Metadata{
		AppRelease: "2.3.0",
		Model:      "Raspberry Pi Zero W Rev 1.1",
		Release:    "Raspbian GNU/Linux 10 (buster)",
		Device:     "wardriver",
		Display:    "waveshare_4",
		Board:      "ARMv6-compatible processor rev 7 (v6l)",
		Brand:      "Raspberry Pi Zero W Rev 1.1",
	}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(meta).Encode(&buf, FormatWigle, testObservations()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "WigleWifi-1.4,appRelease=2.3.0,model=Raspberry Pi Zero W Rev 1.1,"+
		"release=Raspbian GNU/Linux 10 (buster),device=wardriver,display=waveshare_4,"+
		"board=ARMv6-compatible processor rev 7 (v6l),brand=Raspberry Pi Zero W Rev 1.1", lines[0])
	assert.Equal(t, headerLine, lines[1])
}

func TestEncoder_UnknownFormat(t *testing.T) {
	err := NewEncoder(Metadata{}).Encode(io.Discard, Format("kml"), nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseFormat("kml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err := ParseFormat("wigle")
	require.NoError(t, err)
	assert.Equal(t, FormatWigle, f)
}

func TestRoundTrip(t *testing.T) {
	observations := testObservations()

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(Metadata{}).EncodeCSV(&buf, observations))

	dec, err := NewDecoder(&buf)
	require.NoError(t, err)

	for i, o := range observations {
		var rec Record
		require.NoError(t, dec.Decode(&rec), "row %d", i)
		assert.Equal(t, i+2, dec.Line())

		r := rec.Reading()
		assert.Equal(t, o.MAC, r.MAC)
		assert.Equal(t, o.SSID, r.SSID)
		assert.Equal(t, o.AuthMode, r.AuthMode)
		assert.Equal(t, o.Latitude, r.Latitude)
		assert.Equal(t, o.Longitude, r.Longitude)
		assert.Equal(t, o.Altitude, r.Altitude)
		assert.Equal(t, o.Accuracy, r.Accuracy)
		assert.Equal(t, o.Channel, r.Channel)
		assert.Equal(t, o.RSSI, r.RSSI)
		assert.True(t, o.ObservedAt.Equal(r.ObservedAt), "timestamp %v, want %v", r.ObservedAt, o.ObservedAt)
		assert.Equal(t, time.UTC, r.ObservedAt.Location())
		assert.Equal(t, RadioType, rec.Type)
	}

	var rec Record
	assert.True(t, errors.Is(dec.Decode(&rec), io.EOF))
}

func TestDecoder_WigleFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(Metadata{}).EncodeWigle(&buf, testObservations()))

	br := bufio.NewReader(&buf)
	_, err := br.ReadString('\n') // pre-header
	require.NoError(t, err)

	dec, err := NewDecoder(br)
	require.NoError(t, err)

	var n int
	for {
		var rec Record
		if err = dec.Decode(&rec); errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 2, n)
}
