package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Store provides an interface for managing wardriving data: sessions, networks
// and the observations joining them. Networks are identified by the pair
// (MAC, SSID) and are never duplicated. Implementations must be safe for use
// from multiple goroutines.
type Store interface {
	// CreateSession starts a new session and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - opts: Optional WithCreatedAt (backdating, used by imports) and WithUploaded
	//
	// Returns:
	//   - sessionID: Store-assigned, monotonically increasing identifier
	//   - error: *WriteError if the insert fails
	CreateSession(ctx context.Context, opts ...SessionOption) (sessionID int64, err error)

	// Session retrieves a session by its ID.
	//
	// Returns ErrSessionNotFound if the session does not exist.
	Session(ctx context.Context, id int64) (session *wifi.Session, err error)

	// Sessions returns all sessions ordered by ID.
	Sessions(ctx context.Context) (sessions []wifi.Session, err error)

	// MarkUploaded flags a session as accepted by the mapping service.
	// Marking an uploaded session again is a no-op.
	MarkUploaded(ctx context.Context, id int64) error

	// SessionsPendingUpload returns the IDs of all sessions not yet uploaded,
	// excluding the given one (the live session).
	SessionsPendingUpload(ctx context.Context, excludingSessionID int64) (ids []int64, err error)

	// RecordObservation looks up or creates the network (r.MAC, r.SSID) and
	// appends an observation referencing it to the session. Both steps happen
	// in a single transaction.
	//
	// Returns:
	//   - observationID: Identifier of the new observation
	//   - error: *WriteError if any step fails; nothing is written in that case
	RecordObservation(ctx context.Context, sessionID int64, r *wifi.Reading) (observationID int64, err error)

	// CountObservations returns the number of observations in a session,
	// 0 for unknown sessions.
	CountObservations(ctx context.Context, sessionID int64) (count int, err error)

	// ListObservations returns all observations of a session in insertion
	// order, each carrying its network's MAC and SSID.
	ListObservations(ctx context.Context, sessionID int64) (observations []wifi.ObservationView, err error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}

// Reporter is the read-only query surface used by dashboards and maps.
// Sessions without observations never appear in its results.
type Reporter interface {
	// Totals returns store-wide counters.
	Totals(ctx context.Context) (*wifi.Totals, error)

	// SessionSummaries returns one summary per non-empty session, ordered by ID.
	SessionSummaries(ctx context.Context) ([]wifi.SessionSummary, error)

	// NetworkSightings returns first and last sightings for every network.
	NetworkSightings(ctx context.Context) ([]wifi.NetworkSighting, error)

	// MapPoints returns observations flattened for plotting. A sessionID of 0
	// selects all sessions.
	MapPoints(ctx context.Context, sessionID int64) ([]wifi.MapPoint, error)
}

var (
	_ Store    = (*SqliteStore)(nil)
	_ Reporter = (*SqliteStore)(nil)
)
