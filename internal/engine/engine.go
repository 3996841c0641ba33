package engine

import (
	"context"
	"iter"
	"log/slog"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
	"github.com/didar67/enterprise-log-file-analyzer/internal/output"
	"github.com/didar67/enterprise-log-file-analyzer/internal/pattern"
)

// LineOpener produces a fresh line sequence for each analysis run.
type LineOpener interface {
	Path() string
	Lines(ctx context.Context) iter.Seq2[model.LogLine, error]
}

// State is the lifecycle stage of the current or last run.
type State int

const (
	Idle State = iota
	Streaming
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the outcome of a run.
type Result struct {
	Critical       bool
	LinesProcessed int
}

// Engine drives one file through a PatternSet and reports every event to a sink.
// An Engine is not safe for concurrent use; runs must not overlap.
type Engine struct {
	src      LineOpener
	sink     output.Sink
	logger   *slog.Logger
	tsLayout string

	state    State
	critical bool
	lines    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimestampLayout makes the engine attach a parsed timestamp to events
// whose line begins with a timestamp in the given layout.
func WithTimestampLayout(layout string) Option {
	return func(e *Engine) { e.tsLayout = layout }
}

// New creates an Engine. A nil sink discards events; a nil logger discards logs.
func New(src LineOpener, sink output.Sink, logger *slog.Logger, opts ...Option) *Engine {
	if sink == nil {
		sink = output.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{src: src, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze makes a single pass over the source.
//
// In dry-run mode it logs what it would do and returns without opening the
// file. Otherwise the rules are compiled first; a *pattern.CompileError is
// returned before any line is read. A source failure stops the run and is
// returned together with the result accumulated so far.
func (e *Engine) Analyze(ctx context.Context, rules []pattern.Rule, dryRun bool) (Result, error) {
	e.state, e.critical, e.lines = Idle, false, 0
	path := e.src.Path()

	if dryRun {
		e.logger.Info("[DRY-RUN] Would analyze file", slog.String("path", path))
		e.state = Completed
		return e.result(), nil
	}

	set, err := pattern.New(rules)
	if err != nil {
		e.state = Failed
		return e.result(), err
	}

	e.logger.Info("Starting analysis of log file", slog.String("path", path), slog.Int("patterns", set.Len()))
	e.state = Streaming

	for line, err := range e.src.Lines(ctx) {
		if err != nil {
			e.state = Failed
			e.logger.Error("Analysis aborted", slog.String("path", path), slog.Int("lines", e.lines), slog.Any("error", err))
			return e.result(), err
		}
		e.lines++

		for _, ev := range set.Classify(line) {
			ev.Source = path
			if e.tsLayout != "" {
				if ts, ok := pattern.ParseTimestamp(line.Text, e.tsLayout); ok {
					ev.Timestamp = &ts
				}
			}
			if ev.Critical() {
				e.critical = true
			}
			if err := e.sink.Render(ev); err != nil {
				e.logger.Warn("event sink failed", slog.Int("line", ev.Line), slog.Any("error", err))
			}
		}
	}

	e.state = Completed
	e.logger.Info("Complete analysis of log file",
		slog.String("path", path),
		slog.Int("lines", e.lines),
		slog.Bool("critical", e.critical),
	)
	return e.result(), nil
}

// State returns the lifecycle stage of the current or last run.
func (e *Engine) State() State { return e.state }

// Critical reports whether any critical event was seen in the last run,
// including a run that failed part way.
func (e *Engine) Critical() bool { return e.critical }

// LinesProcessed returns the number of lines read in the last run.
func (e *Engine) LinesProcessed() int { return e.lines }

func (e *Engine) result() Result {
	return Result{Critical: e.critical, LinesProcessed: e.lines}
}
