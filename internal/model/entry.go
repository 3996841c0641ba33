package model

import "time"

// Severity is the tier assigned to a matched line.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// LogLine is a single trimmed line read from a log file.
type LogLine struct {
	Number int    // 1-based
	Text   string
}

// Event records which rule matched a line and at what severity.
type Event struct {
	Line      int        `json:"line"`
	Rule      string     `json:"rule"`
	Severity  Severity   `json:"severity"`
	Text      string     `json:"text"`
	Source    string     `json:"source,omitempty"`    // originating file path
	Timestamp *time.Time `json:"timestamp,omitempty"` // nil unless a timestamp layout is configured
}

// Critical reports whether the event sets the critical flag.
func (e Event) Critical() bool {
	return e.Severity == SeverityCritical
}
