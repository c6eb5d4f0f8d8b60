package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/wardriver/internal/connectivity"
	"github.com/roman-kulish/wardriver/internal/export"
	"github.com/roman-kulish/wardriver/internal/ingest"
	"github.com/roman-kulish/wardriver/internal/legacy"
	"github.com/roman-kulish/wardriver/internal/scan"
	"github.com/roman-kulish/wardriver/internal/status"
	"github.com/roman-kulish/wardriver/internal/storage"
	"github.com/roman-kulish/wardriver/internal/upload"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

// Version is written into upload pre-headers. Set via ldflags at build time.
var Version = "dev"

// Run imports legacy files, starts a new session and records cycles until the
// input ends or ctx is cancelled. Uploads and the status API run alongside
// when enabled.
func Run(ctx context.Context, config *Config, input io.Reader, logger *slog.Logger) error {
	store, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err = importLegacy(ctx, config, store, logger); err != nil {
		logger.Error(err.Error()) // legacy files stay for the next run
	}

	encoder := newEncoder(config)

	pipeline := ingest.NewPipeline(store,
		ingest.WithWhitelist(config.EffectiveWhitelist()...),
		ingest.WithAccuracy(config.GPS.Accuracy),
		ingest.WithLogger(logger),
	)
	if _, err = pipeline.StartSession(ctx); err != nil {
		return err
	}

	coordinator := upload.NewCoordinator(store, encoder, newUploader(config),
		upload.WithCurrentSession(pipeline.SessionID),
		upload.WithLogger(logger),
	)

	produce, err := newProducer(config, input, logger)
	if err != nil {
		return err
	}

	var options []func(*Orchestrator)
	if coordinator.Enabled() {
		probe := connectivity.TCPProbe(config.Connectivity.ProbeAddress, connectivity.DefaultProbeTimeout)
		options = append(options, WithWatcher(connectivity.NewWatcher(probe, config.Connectivity.Interval, connectivity.WithLogger(logger))))
	}
	if config.Status.Enabled {
		options = append(options, WithStatusServer(config.Status.Listen, status.NewService(store, pipeline, encoder)))
	}

	return NewOrchestrator(pipeline, coordinator, logger, options...).Run(ctx, produce)
}

// Import runs only the legacy importer. Empty sessions are left alone so a
// running logger keeps its live session.
func Import(ctx context.Context, config *Config, logger *slog.Logger) (*legacy.Report, error) {
	store, err := openStore(ctx, config, logger, storage.WithoutSweep())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return importLegacy(ctx, config, store, logger)
}

// Export writes one session to w.
func Export(ctx context.Context, config *Config, w io.Writer, sessionID int64, format export.Format, logger *slog.Logger) error {
	store, err := storage.OpenReadOnly(ctx, config.DatabasePath(), storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()

	return status.NewService(store, nil, newEncoder(config)).Export(ctx, w, sessionID, format)
}

// Upload runs one upload cycle over every pending session. Empty sessions are
// left alone, as in Import.
func Upload(ctx context.Context, config *Config, logger *slog.Logger) (*upload.CycleReport, error) {
	uploader := newUploader(config)
	if uploader == nil {
		return nil, upload.ErrDisabled
	}

	store, err := openStore(ctx, config, logger, storage.WithoutSweep())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return upload.NewCoordinator(store, newEncoder(config), uploader, upload.WithLogger(logger)).Sync(ctx)
}

// Sessions prints a table of recorded sessions.
func Sessions(ctx context.Context, config *Config, w io.Writer, logger *slog.Logger) error {
	store, err := storage.OpenReadOnly(ctx, config.DatabasePath(), storage.WithLogger(logger))
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.SessionSummaries(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		return fmt.Errorf("querying totals: %w", err)
	}

	return writeSessions(w, summaries, totals, time.Now())
}

func writeSessions(w io.Writer, summaries []wifi.SessionSummary, totals *wifi.Totals, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tSTARTED\tOBSERVATIONS\tNETWORKS\tUPLOADED")
	for _, s := range summaries {
		uploaded := "pending"
		if s.Uploaded {
			uploaded = "yes"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			s.ID,
			humanize.RelTime(s.CreatedAt, now, "ago", "from now"),
			humanize.Comma(int64(s.Observations)),
			humanize.Comma(int64(s.Networks)),
			uploaded,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%s networks, %s observations, %d of %d sessions uploaded\n",
		humanize.Comma(int64(totals.Networks)),
		humanize.Comma(int64(totals.Observations)),
		totals.UploadedSessions,
		totals.Sessions,
	)
	return err
}

func openStore(ctx context.Context, config *Config, logger *slog.Logger, options ...func(*storage.SqliteStore)) (*storage.SqliteStore, error) {
	if err := os.MkdirAll(config.Storage.DataDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", storage.ErrStoreUnavailable, err)
	}

	return storage.Open(ctx, config.DatabasePath(), append([]func(*storage.SqliteStore){storage.WithLogger(logger)}, options...)...)
}

func importLegacy(ctx context.Context, config *Config, store *storage.SqliteStore, logger *slog.Logger) (*legacy.Report, error) {
	report, err := legacy.NewImporter(config.Storage.DataDirectory, store, legacy.WithLogger(logger)).Run(ctx)
	if err != nil {
		return report, fmt.Errorf("importing legacy files: %w", err)
	}
	return report, nil
}

func newEncoder(config *Config) *export.Encoder {
	return export.NewEncoder(export.ReadMetadata(export.DefaultMetadataSources, Version, config.Host.Name, config.Host.DisplayType))
}

// newUploader returns nil when uploads are disabled.
func newUploader(config *Config) upload.Uploader {
	if !config.Wigle.Enabled {
		return nil
	}
	return upload.NewClient(config.Wigle.Endpoint, config.Wigle.APIKey, config.Wigle.Donate, config.Wigle.Timeout)
}

func newProducer(config *Config, input io.Reader, logger *slog.Logger) (CycleProducer, error) {
	if len(config.Scanner.Command) == 0 {
		return ReaderProducer(input, scan.NewSource("input", scan.WithLogger(logger))), nil
	}

	cmd, err := scan.NewCommand(config.Scanner.Command, scan.NewSource("scanner", scan.WithLogger(logger)), logger)
	if err != nil {
		return nil, err
	}
	return cmd.Run, nil
}
