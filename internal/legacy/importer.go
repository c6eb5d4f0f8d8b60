package legacy

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/roman-kulish/wardriver/internal/export"
	"github.com/roman-kulish/wardriver/internal/storage"
	"github.com/roman-kulish/wardriver/internal/wifi"
)

const (
	// RollingFile is the single file older versions appended every session to.
	RollingFile = "wardriver.csv"

	// perRunLayout is the local-time layout of per-run file names.
	perRunLayout = "2006-01-02T15:04:05"
)

var perRunPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.csv$`)

// ParseError reports a malformed legacy file. The file is left on disk.
type ParseError struct {
	File string
	Line int // 0 when the failure is not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("legacy: %s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("legacy: %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Recorder is the part of the store the importer writes through.
type Recorder interface {
	CreateSession(ctx context.Context, opts ...storage.SessionOption) (int64, error)
	RecordObservation(ctx context.Context, sessionID int64, r *wifi.Reading) (int64, error)
}

// Report summarises an import run.
type Report struct {
	Files        int      // Files imported and removed
	Observations int      // Observations written
	Failed       []string // Files left in place
}

// WithLogger sets the logger for the importer
func WithLogger(logger *slog.Logger) func(*Importer) {
	return func(im *Importer) {
		im.logger = logger.With(slog.String("component", "legacy"))
	}
}

// WithLocation sets the time zone per-run file names are interpreted in. Defaults to time.Local.
func WithLocation(loc *time.Location) func(*Importer) {
	return func(im *Importer) {
		im.location = loc
	}
}

// Importer folds flat files written by earlier versions into the store and
// removes them. Everything it imports is marked as already uploaded.
type Importer struct {
	dir      string
	store    Recorder
	location *time.Location
	logger   *slog.Logger
}

// NewImporter creates an Importer for the files in dir.
func NewImporter(dir string, store Recorder, options ...func(*Importer)) *Importer {
	im := Importer{
		dir:      dir,
		store:    store,
		location: time.Local,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&im)
	}

	return &im
}

// Run imports the rolling file and then every per-run file in name order.
// A file that fails is logged, kept and does not stop the others; the
// returned error is reserved for an unreadable directory.
func (im *Importer) Run(ctx context.Context) (*Report, error) {
	var report Report

	rolling := filepath.Join(im.dir, RollingFile)
	if _, err := os.Stat(rolling); err == nil {
		im.importFile(ctx, &report, rolling, 0, time.Time{})
	}

	entries, err := os.ReadDir(im.dir)
	if errors.Is(err, os.ErrNotExist) {
		return &report, nil
	}
	if err != nil {
		return &report, fmt.Errorf("reading %s: %w", im.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !perRunPattern.MatchString(entry.Name()) {
			continue
		}

		if err = ctx.Err(); err != nil {
			return &report, err
		}

		name := entry.Name()
		createdAt, err := time.ParseInLocation(perRunLayout, name[:len(name)-len(filepath.Ext(name))], im.location)
		if err != nil {
			// the pattern admits impossible dates such as month 13
			im.logger.Error("invalid session file name", slog.String("file", name), slog.String("error", err.Error()))
			report.Failed = append(report.Failed, name)
			continue
		}

		im.importFile(ctx, &report, filepath.Join(im.dir, name), 1, createdAt)
	}

	return &report, nil
}

func (im *Importer) importFile(ctx context.Context, report *Report, path string, preHeaderLines int, createdAt time.Time) {
	logger := im.logger.With(slog.String("file", filepath.Base(path)))

	n, err := im.ImportFile(ctx, path, preHeaderLines, createdAt)
	if err != nil {
		logger.Error("legacy file not imported, keeping it", slog.String("error", err.Error()))
		report.Failed = append(report.Failed, filepath.Base(path))
		return
	}

	report.Files++
	report.Observations += n
	logger.Info("legacy file imported", slog.Int("observations", n))
}

// ImportFile parses path completely, then writes its rows into a new session
// and deletes the file. preHeaderLines non-data lines are skipped before the
// column header. A zero createdAt lets the store assign the session time.
//
// Nothing is written when the file does not parse, so a retry never
// duplicates rows. Individual write failures are logged and skipped.
func (im *Importer) ImportFile(ctx context.Context, path string, preHeaderLines int, createdAt time.Time) (int, error) {
	records, err := readRecords(path, preHeaderLines)
	if err != nil {
		return 0, err
	}

	var written int
	if len(records) > 0 {
		opts := []storage.SessionOption{storage.WithUploaded(true)}
		if !createdAt.IsZero() {
			opts = append(opts, storage.WithCreatedAt(createdAt))
		}

		sessionID, err := im.store.CreateSession(ctx, opts...)
		if err != nil {
			return 0, fmt.Errorf("creating session: %w", err)
		}

		for i := range records {
			if _, err = im.store.RecordObservation(ctx, sessionID, records[i].Reading()); err != nil {
				im.logger.Warn("legacy row lost",
					slog.String("file", filepath.Base(path)),
					slog.Int64("session", sessionID),
					slog.String("mac", records[i].MAC),
					slog.String("error", err.Error()),
				)
				continue
			}
			written++
		}
	}

	if err = os.Remove(path); err != nil {
		return written, fmt.Errorf("removing imported file: %w", err)
	}
	return written, nil
}

func readRecords(path string, preHeaderLines int) (records []export.Record, err error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	defer closeWithError(f, &err)

	br := bufio.NewReader(f)
	for i := 0; i < preHeaderLines; i++ {
		if _, err = br.ReadString('\n'); err != nil {
			return nil, &ParseError{File: name, Line: i + 1, Err: fmt.Errorf("reading pre-header: %w", err)}
		}
	}

	dec, err := export.NewDecoder(br)
	if err != nil {
		return nil, &ParseError{File: name, Line: preHeaderLines + 1, Err: err}
	}

	line := preHeaderLines + 1
	for {
		var rec export.Record
		err = dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{File: name, Line: csvErr.Line + preHeaderLines, Err: csvErr.Err}
			}
			return nil, &ParseError{File: name, Line: line + 1, Err: err}
		}

		line = dec.Line() + preHeaderLines
		if rec.MAC == "" {
			return nil, &ParseError{File: name, Line: line, Err: errors.New("missing MAC")}
		}
		records = append(records, rec)
	}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
