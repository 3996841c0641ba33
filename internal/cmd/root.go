package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// flags holds the parsed command-line options.
type flags struct {
	configFile string
	patterns   []string
	dryRun     bool
	verbose    int
	maxLines   int
	output     string
	format     string
	runCmd     string
	watch      bool
	listen     string
}

var opts flags

// rootCmd analyzes the configured log file when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "log-analyzer",
	Short: "Enterprise-grade log file analyzer",
	Long: `log-analyzer scans a log file line by line, flags lines containing ERROR or
WARNING or matching user-supplied regex patterns, and can run a recovery
command when a critical line is found.

Examples:
  log-analyzer --config config/config.yaml --pattern ERROR --dry-run
  log-analyzer -p 'critical:OOM' -p timeout --run-cmd "systemctl restart app"
  log-analyzer --watch --listen :9090 --output reports/events.jsonl

Notes:
  - Configuration is strictly validated; invalid files stop the run.
  - Use --dry-run to report intent without reading the log file.
  - --run-cmd is split on whitespace and executed without a shell.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("max-lines") {
			opts.maxLines = -1
		}
		if opts.watch {
			return runWatch(cmd.Context(), opts)
		}
		return runAnalyze(cmd.Context(), opts)
	},
}

// Execute runs the root command.
func Execute() {
	// Cancel the run on SIGINT/SIGTERM so the open log file is released.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "config/config.yaml", "path to YAML configuration file")
	f.StringArrayVarP(&opts.patterns, "pattern", "p", nil, "regex pattern to search for; repeatable; prefix with critical: or warning: to set severity")
	f.BoolVar(&opts.dryRun, "dry-run", false, "report what would be analyzed without reading the file")
	f.CountVarP(&opts.verbose, "verbose", "v", "increase verbosity (repeatable)")
	f.IntVar(&opts.maxLines, "max-lines", 0, "maximum number of lines to read (0 = no limit; overrides config)")
	f.StringVarP(&opts.output, "output", "o", "", "write classification events as JSON lines to this file")
	f.StringVar(&opts.format, "format", "log", "console event format: log, text, json")
	f.StringVar(&opts.runCmd, "run-cmd", "", "command to run when a critical line is found")
	f.BoolVar(&opts.watch, "watch", false, "re-analyze the file whenever it changes")
	f.StringVar(&opts.listen, "listen", "", "HTTP listen address for stats, metrics and live events in watch mode (overrides config)")
}
