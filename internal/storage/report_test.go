package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteStore_Reports(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.CreateSession(ctx, WithCreatedAt(base), WithUploaded(true))
	require.NoError(t, err)
	second, err := s.CreateSession(ctx, WithCreatedAt(base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.CreateSession(ctx) // stays empty
	require.NoError(t, err)

	record := func(sessionID int64, mac, ssid string, at time.Time) {
		r := testReading(mac, ssid)
		r.ObservedAt = at
		_, err := s.RecordObservation(ctx, sessionID, r)
		require.NoError(t, err)
	}

	record(first, "00:00:00:00:00:01", "Alpha", base.Add(time.Minute))
	record(first, "00:00:00:00:00:02", "Beta", base.Add(2*time.Minute))
	record(first, "00:00:00:00:00:01", "Alpha", base.Add(3*time.Minute))
	record(second, "00:00:00:00:00:01", "Alpha", base.Add(61*time.Minute))

	t.Run("totals", func(t *testing.T) {
		totals, err := s.Totals(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, totals.Networks)
		assert.Equal(t, 2, totals.Sessions)
		assert.Equal(t, 1, totals.UploadedSessions)
		assert.Equal(t, 4, totals.Observations)
	})

	t.Run("session summaries", func(t *testing.T) {
		summaries, err := s.SessionSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		assert.Equal(t, first, summaries[0].ID)
		assert.True(t, summaries[0].Uploaded)
		assert.Equal(t, 3, summaries[0].Observations)
		assert.Equal(t, 2, summaries[0].Networks)
		assert.True(t, summaries[0].CreatedAt.Equal(base))

		assert.Equal(t, second, summaries[1].ID)
		assert.False(t, summaries[1].Uploaded)
		assert.Equal(t, 1, summaries[1].Observations)
		assert.Equal(t, 1, summaries[1].Networks)
	})

	t.Run("network sightings", func(t *testing.T) {
		sightings, err := s.NetworkSightings(ctx)
		require.NoError(t, err)
		require.Len(t, sightings, 2)

		alpha := sightings[0]
		assert.Equal(t, "Alpha", alpha.SSID)
		assert.Equal(t, 3, alpha.Observations)
		assert.True(t, alpha.FirstSeen.Equal(base.Add(time.Minute)), "first seen %v", alpha.FirstSeen)
		assert.Equal(t, first, alpha.FirstSeenSession)
		assert.True(t, alpha.LastSeen.Equal(base.Add(61*time.Minute)), "last seen %v", alpha.LastSeen)
		assert.Equal(t, second, alpha.LastSeenSession)

		beta := sightings[1]
		assert.Equal(t, "Beta", beta.SSID)
		assert.Equal(t, first, beta.FirstSeenSession)
		assert.Equal(t, first, beta.LastSeenSession)
	})

	t.Run("map points", func(t *testing.T) {
		all, err := s.MapPoints(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		only, err := s.MapPoints(ctx, second)
		require.NoError(t, err)
		require.Len(t, only, 1)
		assert.Equal(t, "00:00:00:00:00:01", only[0].MAC)
		assert.Equal(t, 45.0, only[0].Latitude)
		assert.Equal(t, -70, only[0].RSSI)
		assert.True(t, only[0].ObservedAt.Equal(base.Add(61*time.Minute)))
	})
}
