package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

// Built-in keywords checked on every line, in precedence order.
const (
	KeywordError   = "ERROR"
	KeywordWarning = "WARNING"
)

// Rule is a user-supplied pattern with the severity its matches carry.
type Rule struct {
	Expr     string         `mapstructure:"expr"`
	Severity model.Severity `mapstructure:"severity"`
}

// Rules turns raw pattern strings into warning-tier rules.
func Rules(exprs ...string) []Rule {
	rules := make([]Rule, 0, len(exprs))
	for _, e := range exprs {
		rules = append(rules, Rule{Expr: e, Severity: model.SeverityWarning})
	}
	return rules
}

// ParseRule reads a command-line pattern. An optional "warning:" or
// "critical:" prefix selects the severity; anything else is taken verbatim
// as a warning-tier expression.
func ParseRule(s string) Rule {
	for _, sev := range []model.Severity{model.SeverityWarning, model.SeverityCritical} {
		if rest, ok := strings.CutPrefix(s, string(sev)+":"); ok {
			return Rule{Expr: rest, Severity: sev}
		}
	}
	return Rule{Expr: s, Severity: model.SeverityWarning}
}

// CompileError reports the pattern that failed to compile.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

type matcher struct {
	expr     string
	re       *regexp.Regexp
	severity model.Severity
}

// Set classifies lines against the built-in keywords and compiled user rules.
// A Set is immutable once built and safe for concurrent use.
type Set struct {
	matchers []matcher
}

// New compiles every rule. Either all rules compile and a usable Set is
// returned, or the first failure is reported and no Set is returned.
func New(rules []Rule) (*Set, error) {
	matchers := make([]matcher, 0, len(rules))
	for _, r := range rules {
		sev := r.Severity
		switch sev {
		case "":
			sev = model.SeverityWarning
		case model.SeverityWarning, model.SeverityCritical:
		default:
			return nil, &CompileError{Pattern: r.Expr, Err: fmt.Errorf("unknown severity %q", sev)}
		}

		re, err := regexp.Compile(r.Expr)
		if err != nil {
			return nil, &CompileError{Pattern: r.Expr, Err: err}
		}
		matchers = append(matchers, matcher{expr: r.Expr, re: re, severity: sev})
	}
	return &Set{matchers: matchers}, nil
}

// Len returns the number of user rules in the set.
func (s *Set) Len() int {
	return len(s.matchers)
}

// Classify returns one event for the built-in keyword that matches (ERROR
// takes precedence over WARNING) followed by one event per matching user
// rule, in rule order. A line matching nothing yields nil.
func (s *Set) Classify(line model.LogLine) []model.Event {
	var events []model.Event

	switch {
	case strings.Contains(line.Text, KeywordError):
		events = append(events, event(line, KeywordError, model.SeverityCritical))
	case strings.Contains(line.Text, KeywordWarning):
		events = append(events, event(line, KeywordWarning, model.SeverityWarning))
	}

	for _, m := range s.matchers {
		if m.re.MatchString(line.Text) {
			events = append(events, event(line, m.expr, m.severity))
		}
	}

	return events
}

func event(line model.LogLine, rule string, sev model.Severity) model.Event {
	return model.Event{
		Line:     line.Number,
		Rule:     rule,
		Severity: sev,
		Text:     line.Text,
	}
}

// ParseTimestamp parses the leading tokens of a line with the given layout.
// The layout's own token count decides how many whitespace-separated tokens
// are consumed, so "2006-01-02 15:04:05" reads date and time. It returns
// false when the line is too short or the tokens do not parse.
func ParseTimestamp(line, layout string) (time.Time, bool) {
	n := len(strings.Fields(layout))
	tokens := strings.Fields(line)
	if n == 0 || len(tokens) < n {
		return time.Time{}, false
	}
	tokens = tokens[:n]

	t, err := time.Parse(layout, strings.Join(tokens, " "))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
