package storage

import (
	"context"
	"fmt"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

func (s *SqliteStore) Totals(ctx context.Context) (*wifi.Totals, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var t wifi.Totals
	err = db.QueryRowContext(ctx, selectTotalsSQL).Scan(
		&t.Networks,
		&t.Sessions,
		&t.UploadedSessions,
		&t.Observations,
	)
	if err != nil {
		return nil, fmt.Errorf("querying totals: %w", err)
	}
	return &t, nil
}

func (s *SqliteStore) SessionSummaries(ctx context.Context) (summaries []wifi.SessionSummary, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionSummariesSQL)
	if err != nil {
		err = fmt.Errorf("querying session summaries: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			data    sessionData
			summary wifi.SessionSummary
		)
		if err = rows.Scan(&data.ID, &data.CreatedAt, &data.Uploaded, &summary.Observations, &summary.Networks); err != nil {
			err = fmt.Errorf("scanning session summary: %w", err)
			return
		}
		summary.Session = data.toSession()
		summaries = append(summaries, summary)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) NetworkSightings(ctx context.Context) (sightings []wifi.NetworkSighting, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectNetworkSightingsSQL)
	if err != nil {
		err = fmt.Errorf("querying network sightings: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data networkSightingData
		err = rows.Scan(
			&data.ID,
			&data.MAC,
			&data.SSID,
			&data.FirstSeen,
			&data.FirstSeenSession,
			&data.LastSeen,
			&data.LastSeenSession,
			&data.Observations,
		)
		if err != nil {
			err = fmt.Errorf("scanning network sighting: %w", err)
			return
		}
		sightings = append(sightings, data.toSighting())
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) MapPoints(ctx context.Context, sessionID int64) (points []wifi.MapPoint, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectMapPointsSQL, sessionID, sessionID)
	if err != nil {
		err = fmt.Errorf("querying map points: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			p          wifi.MapPoint
			observedAt sqliteTime
		)
		err = rows.Scan(
			&p.SessionID,
			&p.MAC,
			&p.SSID,
			&p.AuthMode,
			&p.Latitude,
			&p.Longitude,
			&p.RSSI,
			&observedAt,
		)
		if err != nil {
			err = fmt.Errorf("scanning map point: %w", err)
			return
		}
		p.ObservedAt = observedAt.Time
		points = append(points, p)
	}
	err = rows.Err()
	return
}
