package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/didar67/enterprise-log-file-analyzer/internal/engine"
	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const epsWindow = 5 * time.Second

// RunSummary describes the most recent analysis run.
type RunSummary struct {
	Finished       time.Time `json:"finished"`
	Duration       string    `json:"duration"`
	Critical       bool      `json:"critical"`
	LinesProcessed int       `json:"lines_processed"`
	Error          string    `json:"error,omitempty"`
}

// Stats holds a point-in-time snapshot of aggregated metrics.
type Stats struct {
	Path           string           `json:"path"`
	Uptime         string           `json:"uptime"`
	Runs           int64            `json:"runs"`
	TotalEvents    int64            `json:"total_events"`
	EPS            float64          `json:"eps"`
	SeverityCounts map[string]int64 `json:"severity_counts"`
	RuleCounts     map[string]int64 `json:"rule_counts"`
	DroppedEvents  int64            `json:"dropped_events"`
	LastRun        *RunSummary      `json:"last_run,omitempty"`
}

// Aggregator consumes hub events and run results, keeping in-memory totals
// and the matching Prometheus collectors.
type Aggregator struct {
	mu             sync.RWMutex
	path           string
	startTime      time.Time
	runs           int64
	totalEvents    int64
	severityCounts map[string]int64
	ruleCounts     map[string]int64
	window         []time.Time // event arrival times for EPS calculation
	lastRun        *RunSummary
	dropped        func() int64
	entries        <-chan model.Event

	registry      *prometheus.Registry
	eventsTotal   *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	linesTotal    prometheus.Counter
	lastCritical  prometheus.Gauge
	lastRunLines  prometheus.Gauge
	droppedEvents prometheus.CounterFunc
}

// New creates an Aggregator reading from the given hub subscription.
// droppedFn provides the live dropped-event count from the hub.
func New(path string, entries <-chan model.Event, droppedFn func() int64) *Aggregator {
	a := &Aggregator{
		path:           path,
		startTime:      time.Now(),
		severityCounts: make(map[string]int64),
		ruleCounts:     make(map[string]int64),
		dropped:        droppedFn,
		entries:        entries,
		registry:       prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_analyzer_events_total",
			Help: "Classification events by severity and rule.",
		}, []string{"severity", "rule"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_analyzer_runs_total",
			Help: "Analysis runs by outcome.",
		}, []string{"outcome"}),
		linesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "log_analyzer_lines_processed_total",
			Help: "Lines read across all runs.",
		}),
		lastCritical: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "log_analyzer_last_run_critical",
			Help: "1 if the most recent run saw a critical line.",
		}),
		lastRunLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "log_analyzer_last_run_lines",
			Help: "Lines read by the most recent run.",
		}),
	}
	a.droppedEvents = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "log_analyzer_dropped_events_total",
		Help: "Events dropped for slow subscribers.",
	}, func() float64 { return float64(a.dropped()) })

	a.registry.MustRegister(a.eventsTotal, a.runsTotal, a.linesTotal, a.lastCritical, a.lastRunLines, a.droppedEvents)
	return a
}

// Registry returns the Prometheus registry holding the aggregator's collectors.
func (a *Aggregator) Registry() *prometheus.Registry {
	return a.registry
}

// Snapshot returns the current metrics.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	severities := make(map[string]int64, len(a.severityCounts))
	for k, v := range a.severityCounts {
		severities[k] = v
	}
	rules := make(map[string]int64, len(a.ruleCounts))
	for k, v := range a.ruleCounts {
		rules[k] = v
	}

	cutoff := time.Now().Add(-epsWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	var last *RunSummary
	if a.lastRun != nil {
		cp := *a.lastRun
		last = &cp
	}

	return Stats{
		Path:           a.path,
		Uptime:         time.Since(a.startTime).Truncate(time.Second).String(),
		Runs:           a.runs,
		TotalEvents:    a.totalEvents,
		EPS:            float64(recent) / epsWindow.Seconds(),
		SeverityCounts: severities,
		RuleCounts:     rules,
		DroppedEvents:  a.dropped(),
		LastRun:        last,
	}
}

// Start begins consuming events. Blocks until the context is cancelled or
// the subscription is closed.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.entries:
			if !ok {
				return
			}
			a.record(ev)
		case <-ticker.C:
			a.prune()
		}
	}
}

// RecordRun stores the outcome of one analysis run.
func (a *Aggregator) RecordRun(res engine.Result, took time.Duration, err error) {
	outcome := "completed"
	summary := &RunSummary{
		Finished:       time.Now(),
		Duration:       took.String(),
		Critical:       res.Critical,
		LinesProcessed: res.LinesProcessed,
	}
	if err != nil {
		outcome = "failed"
		summary.Error = err.Error()
	}

	a.mu.Lock()
	a.runs++
	a.lastRun = summary
	a.mu.Unlock()

	a.runsTotal.WithLabelValues(outcome).Inc()
	a.linesTotal.Add(float64(res.LinesProcessed))
	a.lastRunLines.Set(float64(res.LinesProcessed))
	if res.Critical {
		a.lastCritical.Set(1)
	} else {
		a.lastCritical.Set(0)
	}
}

func (a *Aggregator) record(ev model.Event) {
	a.mu.Lock()
	a.totalEvents++
	a.severityCounts[string(ev.Severity)]++
	a.ruleCounts[ev.Rule]++
	a.window = append(a.window, time.Now())
	a.mu.Unlock()

	a.eventsTotal.WithLabelValues(string(ev.Severity), ev.Rule).Inc()
}

// prune removes timestamps older than the EPS window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-epsWindow)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
