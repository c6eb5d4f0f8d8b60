package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roman-kulish/wardriver/internal/export"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Store is the part of the store the coordinator reads and updates.
type Store interface {
	SessionsPendingUpload(ctx context.Context, excludingSessionID int64) ([]int64, error)
	ListObservations(ctx context.Context, sessionID int64) ([]wifi.ObservationView, error)
	MarkUploaded(ctx context.Context, id int64) error
}

// CycleReport summarises one upload cycle.
type CycleReport struct {
	CycleID  string
	Pending  int
	Uploaded []int64
	Failed   []int64
}

// WithLogger sets the logger for the coordinator
func WithLogger(logger *slog.Logger) func(*Coordinator) {
	return func(c *Coordinator) {
		c.logger = logger.With(slog.String("component", "upload"))
	}
}

// WithCurrentSession sets the provider of the live session, which is never
// uploaded. Without it every pending session is eligible.
func WithCurrentSession(current func() int64) func(*Coordinator) {
	return func(c *Coordinator) {
		c.currentSession = current
	}
}

// Coordinator uploads pending sessions. At most one cycle runs at a time.
type Coordinator struct {
	store          Store
	encoder        *export.Encoder
	uploader       Uploader
	currentSession func() int64
	logger         *slog.Logger

	mu sync.Mutex // held for a whole cycle
}

// NewCoordinator creates a Coordinator. A nil uploader yields a disabled
// coordinator whose Sync always returns ErrDisabled.
func NewCoordinator(store Store, encoder *export.Encoder, uploader Uploader, options ...func(*Coordinator)) *Coordinator {
	c := Coordinator{
		store:          store,
		encoder:        encoder,
		uploader:       uploader,
		currentSession: func() int64 { return 0 },
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Enabled reports whether the coordinator can upload.
func (c *Coordinator) Enabled() bool {
	return c.uploader != nil
}

// HandleConnectivity is the connectivity signal handler. It runs a cycle and
// logs its outcome; a signal arriving during a cycle is dropped.
func (c *Coordinator) HandleConnectivity(ctx context.Context) {
	report, err := c.Sync(ctx)
	switch {
	case errors.Is(err, ErrDisabled):
		return
	case errors.Is(err, ErrCycleInProgress):
		c.logger.Debug("connectivity signal dropped, upload cycle in progress")
		return
	case err != nil:
		c.logger.Error("upload cycle failed", slog.String("error", err.Error()))
		return
	}

	if report.Pending > 0 {
		c.logger.Info("upload cycle finished",
			slog.String("cycle", report.CycleID),
			slog.Int("uploaded", len(report.Uploaded)),
			slog.Int("failed", len(report.Failed)),
		)
	}
}

// Sync uploads every pending session except the live one. A failed session
// is logged and left pending; it never blocks the others. The returned error
// is ErrDisabled, ErrCycleInProgress or a failure to list pending sessions.
func (c *Coordinator) Sync(ctx context.Context) (*CycleReport, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	if !c.mu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer c.mu.Unlock()

	report := CycleReport{CycleID: uuid.NewString()}
	logger := c.logger.With(slog.String("cycle", report.CycleID))

	pending, err := c.store.SessionsPendingUpload(ctx, c.currentSession())
	if err != nil {
		return nil, fmt.Errorf("listing pending sessions: %w", err)
	}
	report.Pending = len(pending)

	for _, sessionID := range pending {
		if err = ctx.Err(); err != nil {
			return &report, err
		}

		if err = c.uploadSession(ctx, sessionID); err != nil {
			logger.Error("session not uploaded", slog.Int64("session", sessionID), slog.String("error", err.Error()))
			report.Failed = append(report.Failed, sessionID)
			continue
		}

		logger.Info("session uploaded", slog.Int64("session", sessionID))
		report.Uploaded = append(report.Uploaded, sessionID)
	}

	return &report, nil
}

func (c *Coordinator) uploadSession(ctx context.Context, sessionID int64) error {
	observations, err := c.store.ListObservations(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetching observations: %w", err)
	}

	var buf bytes.Buffer
	if err = c.encoder.EncodeWigle(&buf, observations); err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err = c.uploader.Upload(ctx, sessionID, export.Filename(sessionID), buf.Bytes()); err != nil {
		return err
	}

	if err = c.store.MarkUploaded(ctx, sessionID); err != nil {
		return fmt.Errorf("marking uploaded: %w", err)
	}
	return nil
}
