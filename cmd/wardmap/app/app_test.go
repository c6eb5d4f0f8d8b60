package app

import (
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/wardriver/internal/storage"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

func testDatabase(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wardriver.db")

	store, err := storage.Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	sessionID, err := store.CreateSession(ctx)
	require.NoError(t, err)

	for _, p := range testPoints() {
		_, err = store.RecordObservation(ctx, sessionID, &wifi.Reading{
			MAC:        p.MAC,
			SSID:       p.SSID,
			AuthMode:   "[WPA2]",
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Accuracy:   10,
			Channel:    6,
			RSSI:       p.RSSI,
			ObservedAt: p.ObservedAt,
		})
		require.NoError(t, err)
	}

	return path
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	config := NewConfig()
	config.DBPath = testDatabase(t)
	config.SessionID = 1
	config.Size = 300
	config.OutputFile = filepath.Join(t.TempDir(), "map.png")

	require.NoError(t, Run(context.Background(), config, logger))

	f, err := os.Open(config.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300+defaultLeftBorder+defaultRightBorder, img.Bounds().Dx())
}

func TestRun_NoObservations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	config := NewConfig()
	config.DBPath = testDatabase(t)
	config.SessionID = 42
	config.OutputFile = filepath.Join(t.TempDir(), "map.png")

	assert.Error(t, Run(context.Background(), config, logger))
	assert.NoFileExists(t, config.OutputFile)
}

func TestRun_MissingDatabase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	config := NewConfig()
	config.DBPath = filepath.Join(t.TempDir(), "missing.db")
	config.OutputFile = filepath.Join(t.TempDir(), "map.png")

	assert.Error(t, Run(context.Background(), config, logger))
}
