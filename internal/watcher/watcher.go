package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Event represents a change to the watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to one file using OS-level notifications. The
// parent directory is watched so that the file can be replaced by rotation.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	path   string
	logger *slog.Logger
}

// New creates a Watcher for the file at path.
func New(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 16),
		path:   abs,
		logger: logger,
	}, nil
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			// Forward content changes and replacements; a removal alone
			// leaves nothing to analyze until the file is recreated.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case w.Events <- Event{Path: w.path, Op: ev.Op}:
			default:
				// A run is already pending; it will see this change too.
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Settle drains events arriving within quiet of each other so that a burst
// of writes triggers one run.
func Settle(ctx context.Context, events <-chan Event, quiet time.Duration) bool {
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-events:
			if !ok {
				return false
			}
			timer.Reset(quiet)
		case <-timer.C:
			return true
		}
	}
}

// Resolve turns a configured log path into a single file. A plain path is
// returned unchanged; a glob (including ** patterns) resolves to the most
// recently modified match.
func Resolve(pattern string) (string, error) {
	if !hasMeta(pattern) {
		return pattern, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files match %q", pattern)
	}

	var newest string
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no readable files match %q", pattern)
	}
	return newest, nil
}

func hasMeta(p string) bool {
	for _, c := range p {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
