package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roman-kulish/wardriver/internal/scan"
	"github.com/roman-kulish/wardriver/internal/storage"
	"github.com/roman-kulish/wardriver/internal/telemetry"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// DefaultAccuracy is the accuracy radius in meters written with every
// observation. The host position API exposes no real accuracy.
const DefaultAccuracy = 10

// ErrNoSession is returned by Process before StartSession succeeded.
var ErrNoSession = errors.New("no active session")

// Writer is the part of the store the pipeline writes through.
type Writer interface {
	CreateSession(ctx context.Context, opts ...storage.SessionOption) (int64, error)
	RecordObservation(ctx context.Context, sessionID int64, r *wifi.Reading) (int64, error)
}

// Session describes the live session.
type Session struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

// Snapshot is the outcome of the most recent cycle that had a position fix.
type Snapshot struct {
	Timestamp    time.Time          `json:"timestamp"`
	AccessPoints []wifi.AccessPoint `json:"accessPoints"` // Access points recorded in that cycle
}

// networkKey identifies a network within a session; SSID is already normalised.
type networkKey struct {
	mac  string
	ssid string
}

// WithLogger sets the logger for the pipeline
func WithLogger(logger *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger.With(slog.String("component", "ingest"))
	}
}

// WithWhitelist excludes access points advertising any of the given names.
// Matching is exact and case-sensitive. Repeated options accumulate.
func WithWhitelist(names ...string) func(*Pipeline) {
	return func(p *Pipeline) {
		for _, name := range names {
			p.whitelist[name] = struct{}{}
		}
	}
}

// WithAccuracy overrides DefaultAccuracy.
func WithAccuracy(meters int) func(*Pipeline) {
	return func(p *Pipeline) {
		p.accuracy = meters
	}
}

// Pipeline turns scan cycles into observations of the live session.
type Pipeline struct {
	store     Writer
	whitelist map[string]struct{}
	accuracy  int
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.RWMutex
	session  Session
	reported map[networkKey]struct{} // unbounded, reset only by StartSession
	last     *Snapshot
}

// NewPipeline creates a Pipeline with a discard logger. StartSession must be
// called before the first cycle is processed.
func NewPipeline(store Writer, options ...func(*Pipeline)) *Pipeline {
	p := Pipeline{
		store:     store,
		whitelist: make(map[string]struct{}),
		accuracy:  DefaultAccuracy,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		reported:  make(map[networkKey]struct{}),
	}

	for _, option := range options {
		option(&p)
	}

	return &p
}

// StartSession opens a new session and forgets everything reported in the
// previous one.
func (p *Pipeline) StartSession(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	startedAt := p.now().UTC()
	id, err := p.store.CreateSession(ctx, storage.WithCreatedAt(startedAt))
	if err != nil {
		return 0, fmt.Errorf("starting session: %w", err)
	}

	p.session = Session{ID: id, StartedAt: startedAt}
	p.reported = make(map[networkKey]struct{})
	p.last = nil

	p.logger.Info("session started", slog.Int64("session", id))

	return id, nil
}

// SessionID returns the live session, 0 before StartSession.
func (p *Pipeline) SessionID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.session.ID
}

// Session returns the live session and whether one has been started.
func (p *Pipeline) Session() (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.session, p.session.ID != 0
}

// LastCycle returns a copy of the most recent snapshot, if any.
func (p *Pipeline) LastCycle() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.last == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		Timestamp:    p.last.Timestamp,
		AccessPoints: slices.Clone(p.last.AccessPoints),
	}, true
}

// Process records one scan cycle and returns the number of observations
// written. Without a position fix the cycle is skipped entirely. Write
// failures are logged and do not stop the remaining access points.
func (p *Pipeline) Process(ctx context.Context, pos *telemetry.Position, aps []wifi.AccessPoint) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session.ID == 0 {
		return 0, ErrNoSession
	}

	logger := p.logger.With(slog.Int64("session", p.session.ID))

	if !pos.HasFix() {
		logger.Warn("GPS not available, skipping cycle", slog.Int("accessPoints", len(aps)))
		return 0, nil
	}

	recorded := make([]wifi.AccessPoint, 0, len(aps))
	for i := range aps {
		ap := &aps[i]

		if _, ok := p.whitelist[ap.Hostname]; ok {
			continue
		}

		key := networkKey{mac: ap.MAC, ssid: ap.SSID()}
		if _, ok := p.reported[key]; ok {
			continue
		}

		r := wifi.Reading{
			MAC:       ap.MAC,
			SSID:      key.ssid,
			AuthMode:  ap.Capabilities(),
			Latitude:  *pos.Latitude,
			Longitude: *pos.Longitude,
			Altitude:  pos.AltitudeOrZero(),
			Accuracy:  p.accuracy,
			Channel:   ap.Channel,
			RSSI:      ap.RSSI,
		}
		if !ap.FirstSeen.IsZero() {
			r.ObservedAt = ap.FirstSeen.UTC()
		}

		if _, err := p.store.RecordObservation(ctx, p.session.ID, &r); err != nil {
			logger.Error("observation lost",
				slog.String("mac", ap.MAC),
				slog.String("ssid", key.ssid),
				slog.String("error", err.Error()),
			)
			continue
		}

		p.reported[key] = struct{}{}
		recorded = append(recorded, *ap)
	}

	p.last = &Snapshot{Timestamp: p.now().UTC(), AccessPoints: recorded}

	if len(recorded) > 0 {
		logger.Info("cycle recorded", slog.Int("observations", len(recorded)), slog.Int("accessPoints", len(aps)))
	}

	return len(recorded), nil
}

// Run processes cycles until the channel is closed or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, cycles <-chan *scan.Cycle) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case cycle, ok := <-cycles:
			if !ok {
				return nil
			}
			if _, err := p.Process(ctx, cycle.Position, cycle.AccessPoints); err != nil {
				return err
			}
		}
	}
}
