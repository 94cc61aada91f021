// Package cli implements the command-line interface for funcgraph.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/config"
)

var (
	cfgFile     string
	verbose     bool
	traceFile   string
	metricsFile string
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "funcgraph",
		Short: "funcgraph - function dependency graphs for Python and TypeScript",
		Long: `funcgraph parses Python, TypeScript and JavaScript sources, follows their
imports from an entrypoint, and builds the graph of which function calls
which. The graph is exported as JSON, DOT or Markdown and can be persisted
to Badger, SQLite or Neo4j.

Commands:
  analyze    Build the dependency graph of an entrypoint
  project    Analyze an entrypoint and the data files next to it
  watch      Re-run the analysis whenever a source file changes
  metrics    Show per-function code metrics for one file
  status     Show what an embedded database holds
  export-db  Dump an embedded database as JSON lines
  import-db  Load a JSON-lines dump into an embedded database
  config     Show the effective configuration
  init       Write a .funcgraph.yaml config file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all subcommands)
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .funcgraph.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&traceFile, "trace-file", "", "write OpenTelemetry spans to this file")
	root.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newProjectCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newMetricsCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newExportDBCmd())
	root.AddCommand(newImportDBCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads the configuration selected by --config and applies the
// global telemetry flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if traceFile != "" {
		cfg.Telemetry.TraceFile = traceFile
	}
	if metricsFile != "" {
		cfg.Telemetry.MetricsFile = metricsFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the slog logger described by cfg, writing to w.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setupLogger installs newLogger(cfg, w) as the default logger.
func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	logger := newLogger(cfg, w)
	slog.SetDefault(logger)
	return logger
}
