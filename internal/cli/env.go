package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/config"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// analyzeFlags are the per-command overrides of the analysis, output and
// sink configuration.
type analyzeFlags struct {
	language  string
	recursive bool
	maxDepth  int
	format    string
	output    string
	sinkType  string
	sinkPath  string
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "source language: python, typescript or javascript (default: from the entrypoint extension)")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", true, "follow imports into other files")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 10, "maximum import depth")
	f.registerOutput(cmd)
}

// registerOutput registers only the output and sink flags.
func (f *analyzeFlags) registerOutput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "json", "output format: json, rich-json, dot or markdown")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&f.sinkType, "sink", "", "persist functions to: none, badger, sqlite or neo4j")
	cmd.Flags().StringVar(&f.sinkPath, "sink-path", "", "database path for the badger or sqlite sink")
}

// apply copies the flags the user set onto cfg.
func (f *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("language") {
		cfg.Analysis.Language = f.language
	}
	if changed("recursive") {
		cfg.Analysis.Recursive = f.recursive
	}
	if changed("max-depth") {
		cfg.Analysis.MaxDepth = f.maxDepth
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("output") {
		cfg.Output.Path = f.output
	}
	if changed("sink") {
		cfg.Sink.Type = f.sinkType
	}
	if changed("sink-path") {
		cfg.Sink.Path = f.sinkPath
	}
}

// runEnv is what an analyzing command needs: configuration, logger,
// telemetry, sink and the analyzer wired to them.
type runEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	tel      *telemetry
	sink     *sinkHandle
	analyzer *analyzer.Analyzer
}

func newRunEnv(cmd *cobra.Command, flags *analyzeFlags) (*runEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg.Log, cmd.ErrOrStderr())
	tel, err := startTelemetry(cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	sink, err := openSink(cmd.Context(), cfg.Sink)
	if err != nil {
		tel.Shutdown(context.Background())
		return nil, err
	}

	opts := append([]analyzer.Option{analyzer.WithLogger(logger)}, sink.options()...)
	return &runEnv{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		sink:     sink,
		analyzer: analyzer.New(analyzer.DefaultRegistry(), opts...),
	}, nil
}

func (e *runEnv) options() analyzer.Options {
	return analyzer.Options{
		Language:  parser.Language(e.cfg.Analysis.Language),
		Recursive: e.cfg.Analysis.Recursive,
		MaxDepth:  e.cfg.Analysis.MaxDepth,
	}
}

// Close releases the sink and flushes telemetry.
func (e *runEnv) Close() error {
	return errors.Join(e.sink.Close(), e.tel.Shutdown(context.Background()))
}
