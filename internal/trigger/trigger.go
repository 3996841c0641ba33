package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Tokenize splits a command line on whitespace. Quoting is not interpreted,
// so arguments containing spaces cannot be expressed.
func Tokenize(cmd string) []string {
	return strings.Fields(cmd)
}

// ExecutionError reports a command that could not be started or exited non-zero.
type ExecutionError struct {
	Argv     []string
	ExitCode int // -1 when the command never ran to completion
	Stderr   string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q failed (exit %d): %s", e.Argv, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("command %q failed (exit %d): %v", e.Argv, e.ExitCode, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result holds the captured output of a successful command.
type Result struct {
	Stdout string
}

// Trigger runs remediation commands directly, never through a shell.
type Trigger struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithTimeout bounds how long a command may run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Trigger) { t.timeout = d }
}

// New creates a Trigger that logs command outcomes through logger.
func New(logger *slog.Logger, opts ...Option) *Trigger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Trigger{logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run executes argv[0] with the remaining tokens as arguments.
func (t *Trigger) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, &ExecutionError{ExitCode: -1, Err: errors.New("empty command")}
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.Debug("Executing command", slog.Any("argv", argv))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return Result{}, &ExecutionError{
			Argv:     argv,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	return Result{Stdout: strings.TrimSpace(stdout.String())}, nil
}

// Remediate runs argv only when critical is set. Failures are logged and
// returned for inspection but are never meant to stop the caller. It reports
// whether the command was attempted.
func (t *Trigger) Remediate(ctx context.Context, critical bool, argv []string) (bool, error) {
	if len(argv) == 0 {
		return false, nil
	}
	if !critical {
		t.logger.Info("No critical issues found, skipping executor step")
		return false, nil
	}

	t.logger.Info("Critical issue detected, executing recovery command", slog.Any("argv", argv))
	res, err := t.Run(ctx, argv)
	if err != nil {
		t.logger.Error("Command failed", slog.Any("error", err))
		return true, err
	}
	t.logger.Info("Command output", slog.String("stdout", res.Stdout))
	return true, nil
}
