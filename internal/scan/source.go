package scan

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"
)

const (
	// ParseErrorsThreshold defines the number of consecutive parse errors allowed
	ParseErrorsThreshold = 5

	maxLineSize = 4 << 20
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading the host output
	ErrBrokenPipe = errors.New("broken pipe")
)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(s *Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("component", "scan"), slog.String("source", s.name))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(s *Source) {
	return func(s *Source) {
		s.parseErrorsThreshold = threshold
	}
}

// Source decodes scan cycles from a line-oriented stream.
type Source struct {
	name                 string
	parseErrorsThreshold uint8
	now                  func() time.Time
	logger               *slog.Logger
}

// NewSource creates a new Source with a discard logger. The name only labels log records.
func NewSource(name string, options ...func(s *Source)) *Source {
	s := Source{
		name:                 name,
		parseErrorsThreshold: ParseErrorsThreshold,
		now:                  time.Now,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Read parses r line by line and sends every decoded cycle to cycles. It
// returns nil at the end of input, ctx.Err() when cancelled, and
// ErrTooManyParseErrors when the stream stops making sense. Isolated bad lines
// are logged and skipped.
func (s *Source) Read(ctx context.Context, r io.Reader, cycles chan<- *Cycle) error {
	var parseErrors uint8

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		cycle, err := ParseCycle(line, s.now())
		if err != nil {
			parseErrors++
			s.logger.Warn(fmt.Sprintf("error parsing cycle: %s", err.Error()), slog.Int("consecutive", int(parseErrors)))

			if parseErrors >= s.parseErrorsThreshold {
				return ErrTooManyParseErrors
			}

			continue
		}

		parseErrors = 0 // reset counter

		for _, skipped := range cycle.Skipped {
			s.logger.Warn("access point skipped", slog.String("error", skipped.Error()))
		}

		select {
		case cycles <- cycle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("%w: error reading input: %w", ErrBrokenPipe, err)
	}

	return nil
}
