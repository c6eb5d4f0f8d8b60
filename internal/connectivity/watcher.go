package connectivity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	DefaultProbeAddress = "api.wigle.net:443"
	DefaultInterval     = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Probe reports whether the network is reachable right now.
type Probe func(ctx context.Context) error

// TCPProbe dials address and closes the connection straight away.
func TCPProbe(address string, timeout time.Duration) Probe {
	return func(ctx context.Context) error {
		d := net.Dialer{Timeout: timeout}

		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("dialing %s: %w", address, err)
		}
		return conn.Close()
	}
}

// WithLogger sets the logger for the watcher
func WithLogger(logger *slog.Logger) func(*Watcher) {
	return func(w *Watcher) {
		w.logger = logger.With(slog.String("component", "connectivity"))
	}
}

// Watcher polls a Probe and signals on every probe that finds the network
// reachable, so work that failed while online is retried on the next tick.
type Watcher struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger

	reachable bool
}

// NewWatcher creates a Watcher with a discard logger.
func NewWatcher(probe Probe, interval time.Duration, options ...func(*Watcher)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	w := Watcher{
		probe:    probe,
		interval: interval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&w)
	}

	return &w
}

// Run probes immediately and then every interval until ctx is cancelled.
// onAvailable is started in its own goroutine after every successful probe,
// so a slow handler never delays probing; handlers must drop signals they are
// still busy with. Run waits for running handlers before returning.
func (w *Watcher) Run(ctx context.Context, onAvailable func(context.Context)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if w.check(ctx) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				onAvailable(ctx)
			}()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// check probes once and reports whether the network is reachable. Only
// transitions are logged.
func (w *Watcher) check(ctx context.Context) bool {
	err := w.probe(ctx)
	if err != nil {
		if w.reachable {
			w.logger.Info("network unreachable", slog.String("error", err.Error()))
		}
		w.reachable = false
		return false
	}

	if !w.reachable {
		w.logger.Info("network reachable")
	}
	w.reachable = true
	return true
}
