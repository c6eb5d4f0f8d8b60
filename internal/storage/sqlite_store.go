package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/roman-kulish/wardriver/internal/wifi"
)

const (
	writeDSNParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	readDSNParams  = "mode=ro&_busy_timeout=5000&_foreign_keys=on"
)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.logger = logger.With(slog.String("component", "storage"))
	}
}

// WithoutSweep keeps sessions without observations when the store is opened,
// for tools that may run next to a live logger.
func WithoutSweep() func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.keepEmpty = true
	}
}

// SessionOption customises a session created with CreateSession.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	createdAt time.Time
	uploaded  bool
}

// WithCreatedAt backdates the session. Without it the store assigns the current time.
func WithCreatedAt(t time.Time) SessionOption {
	return func(o *sessionOptions) {
		o.createdAt = t
	}
}

// WithUploaded sets the initial uploaded flag of the session.
func WithUploaded(uploaded bool) SessionOption {
	return func(o *sessionOptions) {
		o.uploaded = uploaded
	}
}

// SqliteStore handles database operations. Writes go through a single
// connection, reads use a separate read-only pool.
type SqliteStore struct {
	dbPath    string
	readOnly  bool
	keepEmpty bool
	logger    *slog.Logger

	writeDB *sql.DB

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

func newSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	s := SqliteStore{
		dbPath: dbPath,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// Open opens or creates the database at dbPath, ensures the schema exists and
// removes sessions left without observations by a previous run, unless
// WithoutSweep is given. Any failure is reported as ErrStoreUnavailable.
func Open(ctx context.Context, dbPath string, options ...func(*SqliteStore)) (*SqliteStore, error) {
	s := newSqliteStore(dbPath, options...)

	if err := s.openWriteDB(ctx); err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStoreUnavailable, dbPath, err)
	}

	if s.keepEmpty {
		return s, nil
	}

	swept, err := s.sweepEmptySessions(ctx)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: sweeping empty sessions: %w", ErrStoreUnavailable, err)
	}
	if swept > 0 {
		s.logger.Info("removed empty sessions", slog.Int64("count", swept))
	}

	return s, nil
}

// OpenReadOnly opens an existing database for reporting. No schema changes and
// no sweep are performed, so it is safe to use next to a running logger.
func OpenReadOnly(ctx context.Context, dbPath string, options ...func(*SqliteStore)) (*SqliteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s := newSqliteStore(dbPath, options...)
	s.readOnly = true

	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: pinging database: %w", ErrStoreUnavailable, err)
	}

	return s, nil
}

// Path returns the path of the database file.
func (s *SqliteStore) Path() string {
	return s.dbPath
}

func (s *SqliteStore) openWriteDB(ctx context.Context) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, writeDSNParams))
	if err != nil {
		return fmt.Errorf("opening write connection: %w", err)
	}

	// single writer: network lookup-or-create and observation inserts never interleave
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	if _, err = db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("initializing schema: %w", err)
	}

	s.writeDB = db
	return nil
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	if s.writeDB == nil {
		return nil, errors.New("write connection is closed")
	}
	return s.writeDB, nil
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, readDSNParams))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) sweepEmptySessions(ctx context.Context) (int64, error) {
	result, err := s.writeDB.ExecContext(ctx, sweepEmptySessionsSQL)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SqliteStore) CreateSession(ctx context.Context, opts ...SessionOption) (sessionID int64, err error) {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, newWriteError("creating session", err)
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, toSQLTime(o.createdAt), o.uploaded)
	if err != nil {
		return 0, newWriteError("inserting session", err)
	}

	if sessionID, err = result.LastInsertId(); err != nil {
		return 0, newWriteError("getting session ID", err)
	}
	return sessionID, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *wifi.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var data sessionData
	err = db.QueryRowContext(ctx, selectSessionSQL, id).Scan(&data.ID, &data.CreatedAt, &data.Uploaded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	sess := data.toSession()
	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []wifi.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data sessionData
		if err = rows.Scan(&data.ID, &data.CreatedAt, &data.Uploaded); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, data.toSession())
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) MarkUploaded(ctx context.Context, id int64) error {
	db, err := s.getWriteDB()
	if err != nil {
		return newWriteError("marking session uploaded", err)
	}

	result, err := db.ExecContext(ctx, markUploadedSQL, id)
	if err != nil {
		return newWriteError("marking session uploaded", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return newWriteError("marking session uploaded", err)
	}
	if n == 0 {
		return newWriteError("marking session uploaded", fmt.Errorf("session %d: %w", id, ErrSessionNotFound))
	}
	return nil
}

func (s *SqliteStore) SessionsPendingUpload(ctx context.Context, excludingSessionID int64) (ids []int64, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectPendingSessionsSQL, excludingSessionID)
	if err != nil {
		err = fmt.Errorf("querying pending sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			err = fmt.Errorf("scanning session ID: %w", err)
			return
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) RecordObservation(ctx context.Context, sessionID int64, r *wifi.Reading) (observationID int64, err error) {
	defer func() {
		if err != nil {
			err = newWriteError("recording observation", err)
		}
	}()

	db, err := s.getWriteDB()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, insertNetworkSQL, r.MAC, r.SSID); err != nil {
		return 0, fmt.Errorf("inserting network: %w", err)
	}

	var networkID int64
	if err = tx.QueryRowContext(ctx, selectNetworkIDSQL, r.MAC, r.SSID).Scan(&networkID); err != nil {
		return 0, fmt.Errorf("looking up network: %w", err)
	}

	result, err := tx.ExecContext(ctx, insertObservationSQL,
		sessionID,
		networkID,
		r.AuthMode,
		r.Latitude,
		r.Longitude,
		r.Altitude,
		r.Accuracy,
		r.Channel,
		r.RSSI,
		toSQLTime(r.ObservedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting observation: %w", err)
	}

	if observationID, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("getting observation ID: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return observationID, nil
}

func (s *SqliteStore) CountObservations(ctx context.Context, sessionID int64) (count int, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return 0, fmt.Errorf("getting read connection: %w", err)
	}

	if err = db.QueryRowContext(ctx, countObservationsSQL, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting observations: %w", err)
	}
	return count, nil
}

func (s *SqliteStore) ListObservations(ctx context.Context, sessionID int64) (observations []wifi.ObservationView, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectObservationsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying observations: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data observationData
		err = rows.Scan(
			&data.ID,
			&data.SessionID,
			&data.NetworkID,
			&data.MAC,
			&data.SSID,
			&data.AuthMode,
			&data.Latitude,
			&data.Longitude,
			&data.Altitude,
			&data.Accuracy,
			&data.Channel,
			&data.RSSI,
			&data.ObservedAt,
		)
		if err != nil {
			err = fmt.Errorf("scanning observation: %w", err)
			return
		}
		observations = append(observations, data.toView())
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) Close() error {
	if s == nil {
		return nil
	}

	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
