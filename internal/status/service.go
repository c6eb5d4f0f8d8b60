package status

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/wardriver/internal/export"
	"github.com/roman-kulish/wardriver/internal/ingest"
	"github.com/roman-kulish/wardriver/internal/storage"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Store is the read-only part of the store the status surface needs.
type Store interface {
	storage.Reporter
	Session(ctx context.Context, id int64) (*wifi.Session, error)
	CountObservations(ctx context.Context, sessionID int64) (int, error)
	ListObservations(ctx context.Context, sessionID int64) ([]wifi.ObservationView, error)
}

// Live exposes the state of the ingestion pipeline.
type Live interface {
	Session() (ingest.Session, bool)
	LastCycle() (ingest.Snapshot, bool)
}

// Current is the live session as shown on the dashboard.
type Current struct {
	Running      bool             `json:"running"`
	Session      *ingest.Session  `json:"session,omitempty"`
	Started      string           `json:"started,omitempty"` // e.g. "12 minutes ago"
	Observations int              `json:"observations"`
	LastCycle    *ingest.Snapshot `json:"lastCycle,omitempty"`
}

// Totals adds human readable counters to wifi.Totals.
type Totals struct {
	wifi.Totals
	NetworksHuman     string `json:"networksHuman"`
	ObservationsHuman string `json:"observationsHuman"`
}

// Service answers status queries. It never writes.
type Service struct {
	store   Store
	live    Live
	encoder *export.Encoder
	now     func() time.Time
}

// NewService creates a Service. live may be nil when nothing is being
// recorded, e.g. for a read-only dashboard.
func NewService(store Store, live Live, encoder *export.Encoder) *Service {
	return &Service{
		store:   store,
		live:    live,
		encoder: encoder,
		now:     time.Now,
	}
}

func (s *Service) Current(ctx context.Context) (*Current, error) {
	if s.live == nil {
		return &Current{}, nil
	}

	session, ok := s.live.Session()
	if !ok {
		return &Current{}, nil
	}

	count, err := s.store.CountObservations(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("counting observations: %w", err)
	}

	c := Current{
		Running:      true,
		Session:      &session,
		Started:      humanize.RelTime(session.StartedAt, s.now(), "ago", "from now"),
		Observations: count,
	}
	if snap, ok := s.live.LastCycle(); ok {
		c.LastCycle = &snap
	}
	return &c, nil
}

func (s *Service) Totals(ctx context.Context) (*Totals, error) {
	t, err := s.store.Totals(ctx)
	if err != nil {
		return nil, err
	}

	return &Totals{
		Totals:            *t,
		NetworksHuman:     humanize.Comma(int64(t.Networks)),
		ObservationsHuman: humanize.Comma(int64(t.Observations)),
	}, nil
}

func (s *Service) Sessions(ctx context.Context) ([]wifi.SessionSummary, error) {
	return s.store.SessionSummaries(ctx)
}

func (s *Service) Networks(ctx context.Context) ([]wifi.NetworkSighting, error) {
	return s.store.NetworkSightings(ctx)
}

func (s *Service) Map(ctx context.Context, sessionID int64) ([]wifi.MapPoint, error) {
	return s.store.MapPoints(ctx, sessionID)
}

// Export renders a session on demand. It returns storage.ErrSessionNotFound
// for unknown sessions.
func (s *Service) Export(ctx context.Context, w io.Writer, sessionID int64, format export.Format) error {
	if _, err := s.store.Session(ctx, sessionID); err != nil {
		return err
	}

	observations, err := s.store.ListObservations(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("listing observations: %w", err)
	}

	return s.encoder.Encode(w, format, observations)
}
