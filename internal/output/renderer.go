package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

// Sink receives classification events as they are produced.
type Sink interface {
	Render(ev model.Event) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleLine     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))            // gray
	styleRule     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
)

// TextRenderer prints events with severity-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Sink that writes colorized text to w, or stdout when w is nil.
func NewTextRenderer(w io.Writer) *TextRenderer {
	if w == nil {
		w = os.Stdout
	}
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(ev model.Event) error {
	tag := styleSeverityTag(ev.Severity)
	ln := styleLine.Render(fmt.Sprintf("%6d", ev.Line))
	rule := styleRule.Render("[" + ev.Rule + "]")

	_, err := fmt.Fprintf(r.w, "%s %s %s %s\n", ln, tag, rule, ev.Text)
	return err
}

func styleSeverityTag(sev model.Severity) string {
	padded := fmt.Sprintf("%-8s", sev)
	if sev == model.SeverityCritical {
		return styleCritical.Render(padded)
	}
	return styleWarn.Render(padded)
}

// ---------------------------------------------------------------------------
// JSON Renderer (one object per line)
// ---------------------------------------------------------------------------

// JSONRenderer writes each event as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Sink that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(ev model.Event) error {
	return r.enc.Encode(ev)
}

// ---------------------------------------------------------------------------
// Log Sink
// ---------------------------------------------------------------------------

// LogSink reports events through a structured logger: critical events at
// error level, everything else at warn level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Render(ev model.Event) error {
	level := slog.LevelWarn
	if ev.Critical() {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "Found "+ev.Rule,
		slog.Int("line", ev.Line),
		slog.String("severity", string(ev.Severity)),
		slog.String("text", ev.Text),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Fan-out
// ---------------------------------------------------------------------------

// Multi forwards every event to each sink in order. All sinks are tried;
// their errors are joined.
type Multi []Sink

func (m Multi) Render(ev model.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Render(model.Event) error { return nil }
