package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roman-kulish/wardriver/internal/connectivity"
	"github.com/roman-kulish/wardriver/internal/ingest"
	"github.com/roman-kulish/wardriver/internal/scan"
	"github.com/roman-kulish/wardriver/internal/status"
	"github.com/roman-kulish/wardriver/internal/upload"
)

const cycleBufferSize = 16

// CycleProducer feeds scan cycles until its input ends or ctx is cancelled.
type CycleProducer func(ctx context.Context, cycles chan<- *scan.Cycle) error

// ReaderProducer reads JSON-lines cycles from r. A closable r is closed on
// cancellation to unblock a pending read.
func ReaderProducer(r io.Reader, source *scan.Source) CycleProducer {
	return func(ctx context.Context, cycles chan<- *scan.Cycle) error {
		if c, ok := r.(io.Closer); ok {
			stop := context.AfterFunc(ctx, func() { _ = c.Close() })
			defer stop()
		}
		return source.Read(ctx, r, cycles)
	}
}

// WithWatcher enables uploads on connectivity changes
func WithWatcher(watcher *connectivity.Watcher) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.watcher = watcher
	}
}

// WithStatusServer serves the status API on addr
func WithStatusServer(addr string, svc *status.Service) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.statusAddr = addr
		o.status = svc
	}
}

// Orchestrator runs the live session: the cycle producer feeding the
// ingestion pipeline, and optionally the connectivity watcher driving uploads
// and the status server. The session ends when the producer runs out of input
// or ctx is cancelled.
type Orchestrator struct {
	pipeline    *ingest.Pipeline
	coordinator *upload.Coordinator
	watcher     *connectivity.Watcher
	status      *status.Service
	statusAddr  string
	logger      *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(pipeline *ingest.Pipeline, coordinator *upload.Coordinator, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		pipeline:    pipeline,
		coordinator: coordinator,
		logger:      logger,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run blocks until the session is over and returns the first fatal error.
func (o *Orchestrator) Run(ctx context.Context, produce CycleProducer) error {
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	errCh := make(chan error, 4)
	cycles := make(chan *scan.Cycle, cycleBufferSize)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(cycles) // lets the pipeline drain and finish

		if err := produce(ctx, cycles); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("reading scan cycles: %w", err)
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.cancel() // end of input ends the session

		if err := o.pipeline.Run(ctx, cycles); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("ingesting: %w", err)
		}
	}()

	if o.watcher != nil && o.coordinator.Enabled() {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			_ = o.watcher.Run(ctx, o.coordinator.HandleConnectivity)
		}()
	}

	if o.status != nil {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()

			handler := status.NewRouter(o.status, o.logger)
			if err := status.Serve(ctx, o.statusAddr, handler, o.logger); err != nil {
				// the logger keeps running without its dashboard
				o.logger.Error(err.Error())
			}
		}()
	}

	o.wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
