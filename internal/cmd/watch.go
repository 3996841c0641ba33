package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/didar67/enterprise-log-file-analyzer/internal/aggregator"
	"github.com/didar67/enterprise-log-file-analyzer/internal/hub"
	"github.com/didar67/enterprise-log-file-analyzer/internal/logging"
	"github.com/didar67/enterprise-log-file-analyzer/internal/pattern"
	"github.com/didar67/enterprise-log-file-analyzer/internal/server"
	"github.com/didar67/enterprise-log-file-analyzer/internal/watcher"
)

// settleDelay groups bursts of writes into a single re-analysis.
const settleDelay = 250 * time.Millisecond

func runWatch(ctx context.Context, f flags) error {
	r, err := prepare(f)
	if err != nil {
		return err
	}
	defer logging.Close()

	addr := f.listen
	if addr == "" {
		addr = r.cfg.Server.Listen
	}
	return r.watch(ctx, addr)
}

// watch analyzes the file, then again after every change, until ctx is
// cancelled. Runs never overlap. Read failures are logged and the next
// change is awaited; a bad pattern is fatal before watching starts.
func (r *runner) watch(ctx context.Context, addr string) error {
	if r.dryRun {
		r.logger.Info("[DRY-RUN] Watch mode disabled")
		return r.runOnce(ctx)
	}
	if _, err := pattern.New(r.rules); err != nil {
		return err
	}

	// --- Wire up the event pipeline ---
	h := hub.New(r.logger)
	defer h.Close()

	agg := aggregator.New(r.path, h.Subscribe(), h.Dropped)
	go agg.Start(ctx)

	if addr != "" {
		srv := server.New(h, agg, addr, r.logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				r.logger.Error("HTTP server stopped", slog.Any("error", err))
			}
		}()
	}

	w, err := watcher.New(r.path, r.logger)
	if err != nil {
		return err
	}
	go w.Start(ctx)

	r.logger.Info("Watching log file", slog.String("path", w.Path()))

	for {
		start := time.Now()
		res, err := r.analyze(ctx, h)
		agg.RecordRun(res, time.Since(start), err)

		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			r.logger.Error("Analysis failed, waiting for next change", slog.Any("error", err))
		default:
			_, _ = r.trigger.Remediate(ctx, res.Critical, r.argv)
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Events:
			if !ok {
				return nil
			}
		}
		if !watcher.Settle(ctx, w.Events, settleDelay) {
			return nil
		}
	}
}
