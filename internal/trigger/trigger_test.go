package trigger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  systemctl   restart\tnginx ")
	want := []string{"systemctl", "restart", "nginx"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := Tokenize("   "); len(got) != 0 {
		t.Errorf("expected no tokens, got %q", got)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	requireCommand(t, "echo")

	res, err := New(nil).Run(context.Background(), []string{"echo", "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "ok" {
		t.Errorf("expected stdout 'ok', got %q", res.Stdout)
	}
}

func TestRunNoShellInterpretation(t *testing.T) {
	requireCommand(t, "echo")

	res, err := New(nil).Run(context.Background(), Tokenize("echo $HOME;ls"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "$HOME;ls" {
		t.Errorf("expected arguments passed verbatim, got %q", res.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	requireCommand(t, "sh")

	_, err := New(nil).Run(context.Background(), []string{"sh", "-c", "echo broken >&2; exit 3"})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", execErr.ExitCode)
	}
	if execErr.Stderr != "broken" {
		t.Errorf("expected stderr 'broken', got %q", execErr.Stderr)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-binary")

	_, err := New(nil).Run(context.Background(), []string{missing})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %v", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", execErr.ExitCode)
	}
}

func TestRunEmpty(t *testing.T) {
	if _, err := New(nil).Run(context.Background(), nil); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestRunTimeout(t *testing.T) {
	requireCommand(t, "sleep")

	start := time.Now()
	_, err := New(nil, WithTimeout(100*time.Millisecond)).Run(context.Background(), []string{"sleep", "5"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("expected command to be killed at the timeout")
	}
}

func TestRemediateWhenCritical(t *testing.T) {
	requireCommand(t, "echo")

	var buf bytes.Buffer
	tr := New(slog.New(slog.NewTextHandler(&buf, nil)))

	ran, err := tr.Remediate(context.Background(), true, []string{"echo", "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("expected command to run")
	}
	if !strings.Contains(buf.String(), "stdout=ok") {
		t.Errorf("expected stdout to be logged, got %q", buf.String())
	}
}

func TestRemediateSkippedWhenNotCritical(t *testing.T) {
	// A command that would fail loudly if it ran.
	argv := []string{filepath.Join(t.TempDir(), "never-run")}

	ran, err := New(nil).Remediate(context.Background(), false, argv)
	if ran || err != nil {
		t.Errorf("expected no attempt, got ran=%v err=%v", ran, err)
	}
}

func TestRemediateFailureIsContained(t *testing.T) {
	requireCommand(t, "false")

	var buf bytes.Buffer
	tr := New(slog.New(slog.NewTextHandler(&buf, nil)))

	ran, err := tr.Remediate(context.Background(), true, []string{"false"})
	if !ran {
		t.Error("expected command to be attempted")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Errorf("expected *ExecutionError for inspection, got %v", err)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected failure to be logged at error level, got %q", buf.String())
	}
}
