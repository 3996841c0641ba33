package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/didar67/enterprise-log-file-analyzer/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical sits above slog.LevelError for conditions that need
// immediate attention.
const LevelCritical = slog.LevelError + 4

const megabyte = 1 << 20

var (
	once   sync.Once
	logger *slog.Logger
	rotor  *lumberjack.Logger
	err    error
)

// Setup builds the process logger on first use and returns the same handle on
// every later call, whatever arguments are passed.
func Setup(cfg config.Logging, verbose int) (*slog.Logger, error) {
	once.Do(func() {
		logger, rotor, err = New(cfg, verbose, os.Stderr)
	})
	return logger, err
}

// Close flushes and closes the rotating file opened by Setup.
func Close() error {
	if rotor == nil {
		return nil
	}
	return rotor.Close()
}

// New builds a logger writing to a size-rotated file and to console. Each
// --verbose step lowers the threshold by one level.
func New(cfg config.Logging, verbose int, console io.Writer) (*slog.Logger, *lumberjack.Logger, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	level -= slog.Level(4 * verbose)

	if dir := filepath.Dir(cfg.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	rotor := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    sizeInMegabytes(cfg.MaxBytes),
		MaxBackups: cfg.BackupCount,
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}
	var w io.Writer = rotor
	if console != nil {
		w = io.MultiWriter(rotor, console)
	}
	return slog.New(slog.NewTextHandler(w, opts)), rotor, nil
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return LevelCritical, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// sizeInMegabytes rounds a byte budget up to lumberjack's megabyte unit.
func sizeInMegabytes(n int64) int {
	if n <= 0 {
		return 1
	}
	return int((n + megabyte - 1) / megabyte)
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	switch level := a.Value.Any().(slog.Level); {
	case level >= LevelCritical:
		a.Value = slog.StringValue("CRITICAL")
	case level == slog.LevelWarn:
		a.Value = slog.StringValue("WARNING")
	}
	return a
}
