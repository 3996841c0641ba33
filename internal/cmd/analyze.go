package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/didar67/enterprise-log-file-analyzer/internal/config"
	"github.com/didar67/enterprise-log-file-analyzer/internal/engine"
	"github.com/didar67/enterprise-log-file-analyzer/internal/logging"
	"github.com/didar67/enterprise-log-file-analyzer/internal/output"
	"github.com/didar67/enterprise-log-file-analyzer/internal/pattern"
	"github.com/didar67/enterprise-log-file-analyzer/internal/source"
	"github.com/didar67/enterprise-log-file-analyzer/internal/trigger"
	"github.com/didar67/enterprise-log-file-analyzer/internal/watcher"
)

// runner carries everything one or more analysis passes need.
type runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	path     string
	rules    []pattern.Rule
	dryRun   bool
	maxLines int
	output   string
	console  output.Sink
	trigger  *trigger.Trigger
	argv     []string
}

func runAnalyze(ctx context.Context, f flags) error {
	r, err := prepare(f)
	if err != nil {
		return err
	}
	defer logging.Close()

	return r.runOnce(ctx)
}

// prepare loads configuration and the process logger, then builds a runner.
func prepare(f flags) (*runner, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup(cfg.Logging, f.verbose)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	logger.Info("Application started...")

	return newRunner(cfg, f, logger, os.Stdout)
}

func newRunner(cfg *config.Config, f flags, logger *slog.Logger, stdout io.Writer) (*runner, error) {
	// Either source can enable dry run. A dry run touches no files, so the
	// path is kept as configured instead of being resolved.
	dryRun := f.dryRun || cfg.App.DryRun
	path := cfg.App.LogFilePath
	if !dryRun {
		var err error
		path, err = watcher.Resolve(cfg.App.LogFilePath)
		if err != nil {
			return nil, &source.IOError{Path: cfg.App.LogFilePath, Op: "resolve", Err: err}
		}
	}

	rules := slices.Clone(cfg.App.Patterns)
	for _, p := range f.patterns {
		rules = append(rules, pattern.ParseRule(p))
	}

	maxLines := cfg.App.MaxLines
	if f.maxLines >= 0 {
		maxLines = f.maxLines
	}

	var console output.Sink
	switch strings.ToLower(f.format) {
	case "", "log":
		console = output.NewLogSink(logger)
	case "text":
		console = output.NewTextRenderer(stdout)
	case "json":
		console = output.NewJSONRenderer(stdout)
	default:
		return nil, fmt.Errorf("unknown format %q (want log, text or json)", f.format)
	}

	return &runner{
		cfg:      cfg,
		logger:   logger,
		path:     path,
		rules:    rules,
		dryRun:   dryRun,
		maxLines: maxLines,
		output:   f.output,
		console:  console,
		trigger:  trigger.New(logger, trigger.WithTimeout(cfg.Action.Timeout)),
		argv:     trigger.Tokenize(f.runCmd),
	}, nil
}

// runOnce analyzes the file a single time and remediates if needed.
func (r *runner) runOnce(ctx context.Context) error {
	res, err := r.analyze(ctx, nil)
	if err != nil {
		return err
	}

	// Remediation failures are logged by the trigger and never change the exit status.
	_, _ = r.trigger.Remediate(ctx, res.Critical, r.argv)

	r.logger.Info("Application finished successfully.")
	return nil
}

// analyze makes one engine pass, sending events to the console sink, the
// optional extra sink and the --output report.
func (r *runner) analyze(ctx context.Context, extra output.Sink) (engine.Result, error) {
	sinks := output.Multi{r.console}
	if extra != nil {
		sinks = append(sinks, extra)
	}

	var report *output.FileSink
	if r.output != "" && !r.dryRun {
		var err error
		report, err = output.NewFileSink(r.output)
		if err != nil {
			return engine.Result{}, fmt.Errorf("open output %s: %w", r.output, err)
		}
		sinks = append(sinks, report)
	}

	src := source.New(r.path,
		source.WithBufferSize(r.cfg.App.AsyncChunkSize),
		source.WithMaxLines(r.maxLines),
	)
	eng := engine.New(src, sinks, r.logger, engine.WithTimestampLayout(r.cfg.App.TimestampFormat))

	res, err := eng.Analyze(ctx, r.rules, r.dryRun)

	if report != nil {
		var ce *pattern.CompileError
		if errors.As(err, &ce) {
			report.Abort()
		} else if cerr := report.Close(); cerr != nil {
			r.logger.Error("write output failed", slog.String("path", r.output), slog.Any("error", cerr))
		}
	}
	return res, err
}
