package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
)

// Command runs the host scanner as a child process and reads cycles from its
// standard output. Standard error is forwarded to the log.
type Command struct {
	binPath string
	args    []string
	source  *Source

	isRunning atomic.Bool
	logger    *slog.Logger
}

// NewCommand resolves argv[0] in PATH and prepares the scanner process.
func NewCommand(argv []string, source *Source, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty scanner command")
	}

	binPath, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("error finding scanner: %w", err)
	}

	return &Command{
		binPath: binPath,
		args:    argv[1:],
		source:  source,
		logger:  logger.With(slog.String("component", "scanner"), slog.String("bin", binPath)),
	}, nil
}

// Run starts the scanner and blocks until it exits, its output becomes
// unparseable, or ctx is cancelled. Cancellation is not an error.
func (c *Command) Run(ctx context.Context, cycles chan<- *Cycle) error {
	if !c.isRunning.CompareAndSwap(false, true) {
		return errors.New("scanner is already running")
	}
	defer c.isRunning.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binPath, c.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("error starting scanner: %w", err)
	}

	c.logger.Info("scanner started", slog.Int("pid", cmd.Process.Pid))

	done := make(chan error, 2) // expects two results from two goroutines

	go func() {
		err := c.source.Read(ctx, stdout, cycles)
		if err != nil {
			cancel() // stop the process, its output is no longer consumed
		}
		done <- err
	}()
	go c.handleStderr(stderr, done)

	var errs []error
	for i := 0; i < cap(done); i++ {
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error(err.Error())
			errs = append(errs, err)
		}
	}

	// pipes must be drained before Wait closes them
	if err = cmd.Wait(); err != nil && ctx.Err() == nil {
		errs = append(errs, fmt.Errorf("scanner exited with error: %w", err))
	}

	c.logger.Info("scanner stopped")

	return errors.Join(errs...)
}

// handleStderr reads from stderr and logs every line.
func (c *Command) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		c.logger.Warn(fmt.Sprintf("scanner >> %s", line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}
