package scan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"
)

const validLine = `{"gps":{"Latitude":45.1,"Longitude":9.2},"access_points":[{"mac":"aa:bb:cc:dd:ee:ff","hostname":"Cafe","channel":6,"rssi":-70}]}`

func collect(t *testing.T, input string, options ...func(*Source)) ([]*Cycle, error) {
	t.Helper()

	cycles := make(chan *Cycle, 16)
	err := NewSource("test", options...).Read(context.Background(), strings.NewReader(input), cycles)
	close(cycles)

	var got []*Cycle
	for c := range cycles {
		got = append(got, c)
	}
	return got, err
}

func TestSource_Read(t *testing.T) {
	input := strings.Join([]string{
		validLine,
		"",
		"garbage",
		validLine,
		"   ",
		validLine,
	}, "\n")

	got, err := collect(t, input)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read() delivered %d cycles, want 3", len(got))
	}
}

func TestSource_TooManyParseErrors(t *testing.T) {
	lines := []string{validLine}
	for i := 0; i < 3; i++ {
		lines = append(lines, "garbage")
	}
	lines = append(lines, validLine)

	got, err := collect(t, strings.Join(lines, "\n"), WithParseErrorsThreshold(3))
	if !errors.Is(err, ErrTooManyParseErrors) {
		t.Fatalf("Read() error = %v, want ErrTooManyParseErrors", err)
	}
	if len(got) != 1 {
		t.Errorf("Read() delivered %d cycles before failing, want 1", len(got))
	}
}

func TestSource_ErrorCounterResets(t *testing.T) {
	input := strings.Join([]string{"bad", "bad", validLine, "bad", "bad", validLine}, "\n")

	got, err := collect(t, input, WithParseErrorsThreshold(3))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Read() delivered %d cycles, want 2", len(got))
	}
}

func TestSource_BadAccessPointKeepsCycle(t *testing.T) {
	const partial = `{"gps":{"Latitude":45.1,"Longitude":9.2},"access_points":[{"hostname":"NoMAC"},{"mac":"aa:bb:cc:dd:ee:ff","hostname":"Cafe"}]}`

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	input := strings.Join([]string{partial, partial, partial}, "\n")
	got, err := collect(t, input, WithParseErrorsThreshold(2), WithLogger(logger))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read() delivered %d cycles, want 3", len(got))
	}
	if n := len(got[0].AccessPoints); n != 1 {
		t.Errorf("cycle has %d access points, want 1", n)
	}
	if n := strings.Count(logs.String(), "access point skipped"); n != 3 {
		t.Errorf("logged %d skipped access points, want 3", n)
	}
}

func TestSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cycles := make(chan *Cycle) // never drained
	err := NewSource("test").Read(ctx, strings.NewReader(validLine), cycles)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Read() error = %v, want context.Canceled", err)
	}
}

func TestCommand_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	script := "echo '" + validLine + "'; echo 'scanner warming up' >&2; echo '" + validLine + "'"

	cmd, err := NewCommand([]string{"sh", "-c", script}, NewSource("sh"), discardLogger())
	if err != nil {
		t.Fatalf("NewCommand() error = %v", err)
	}

	cycles := make(chan *Cycle, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = cmd.Run(ctx, cycles); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(cycles) != 2 {
		t.Errorf("Run() delivered %d cycles, want 2", len(cycles))
	}
}

func TestNewCommand_NotFound(t *testing.T) {
	if _, err := NewCommand([]string{"wardriver-no-such-scanner"}, NewSource("x"), discardLogger()); err == nil {
		t.Fatal("NewCommand() expected error for missing binary")
	}
	if _, err := NewCommand(nil, NewSource("x"), discardLogger()); err == nil {
		t.Fatal("NewCommand() expected error for empty command")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
