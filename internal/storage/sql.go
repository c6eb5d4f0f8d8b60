package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (created_at,
                      uploaded)
VALUES (COALESCE(?, CURRENT_TIMESTAMP), ?)`

	sweepEmptySessionsSQL = `
DELETE
FROM sessions
WHERE NOT EXISTS (SELECT 1
                  FROM observations o
                  WHERE o.session_id = sessions.id)`

	selectSessionSQL = `
SELECT 
    s.id, 
    s.created_at, 
    s.uploaded
FROM sessions s
WHERE 
    s.id = ?`

	selectSessionsSQL = `
SELECT 
    s.id, 
    s.created_at, 
    s.uploaded
FROM sessions s
ORDER BY s.id`

	markUploadedSQL = `
UPDATE sessions
SET uploaded = 1
WHERE id = ?`

	selectPendingSessionsSQL = `
SELECT 
    id
FROM sessions
WHERE 
    uploaded = 0
    AND id <> ?
ORDER BY id`

	insertNetworkSQL = `
INSERT INTO networks (mac,
                      ssid)
VALUES (?, ?)
ON CONFLICT (mac, ssid) DO NOTHING`

	selectNetworkIDSQL = `
SELECT 
    id
FROM networks
WHERE 
    mac = ?
    AND ssid = ?`

	insertObservationSQL = `
INSERT INTO observations (session_id,
                          network_id,
                          auth_mode,
                          latitude,
                          longitude,
                          altitude,
                          accuracy,
                          channel,
                          rssi,
                          observed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))`

	countObservationsSQL = `
SELECT 
    COUNT(*)
FROM observations
WHERE 
    session_id = ?`

	selectObservationsSQL = `
SELECT 
    o.id,
    o.session_id,
    o.network_id,
    n.mac,
    n.ssid,
    o.auth_mode,
    o.latitude,
    o.longitude,
    o.altitude,
    o.accuracy,
    o.channel,
    o.rssi,
    o.observed_at
FROM observations o
         JOIN networks n ON n.id = o.network_id
WHERE 
    o.session_id = ?
ORDER BY o.id`

	selectTotalsSQL = `
SELECT 
    (SELECT COUNT(*) FROM networks),
    (SELECT COUNT(*)
     FROM sessions s
     WHERE EXISTS (SELECT 1 FROM observations o WHERE o.session_id = s.id)),
    (SELECT COUNT(*)
     FROM sessions s
     WHERE s.uploaded = 1
       AND EXISTS (SELECT 1 FROM observations o WHERE o.session_id = s.id)),
    (SELECT COUNT(*) FROM observations)`

	selectSessionSummariesSQL = `
SELECT 
    s.id,
    s.created_at,
    s.uploaded,
    COUNT(o.id),
    COUNT(DISTINCT o.network_id)
FROM sessions s
         JOIN observations o ON o.session_id = s.id
GROUP BY s.id, s.created_at, s.uploaded
ORDER BY s.id`

	selectNetworkSightingsSQL = `
SELECT 
    n.id,
    n.mac,
    n.ssid,
    MIN(o.observed_at),
    (SELECT f.session_id
     FROM observations f
     WHERE f.network_id = n.id
     ORDER BY f.observed_at, f.id
     LIMIT 1),
    MAX(o.observed_at),
    (SELECT l.session_id
     FROM observations l
     WHERE l.network_id = n.id
     ORDER BY l.observed_at DESC, l.id DESC
     LIMIT 1),
    COUNT(o.id)
FROM networks n
         JOIN observations o ON o.network_id = n.id
GROUP BY n.id, n.mac, n.ssid
ORDER BY n.id`

	selectMapPointsSQL = `
SELECT 
    o.session_id,
    n.mac,
    n.ssid,
    o.auth_mode,
    o.latitude,
    o.longitude,
    o.rssi,
    o.observed_at
FROM observations o
         JOIN networks n ON n.id = o.network_id
WHERE 
    ? = 0 
    OR o.session_id = ?
ORDER BY o.id`
)

//go:embed schema.sql
var schemaSQL string
