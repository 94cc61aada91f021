package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/parser"
	"github.com/aiai-labs/funcgraph/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "watch <entrypoint>",
		Short: "Re-run the analysis whenever a source file changes",
		Long: `Analyze the entrypoint, then watch its directory tree and run the full
analysis again after every change to a file of the entrypoint's language.
Directories ignored by .gitignore or datafiles.exclude_dirs are not watched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			env, err := newRunEnv(cmd, &flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := env.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			entrypoint := args[0]
			p, err := env.analyzer.ParserFor(entrypoint, parser.Language(env.cfg.Analysis.Language))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := env.analyzeOnce(ctx, cmd, entrypoint); err != nil {
				return err
			}

			abs, _ := filepath.Abs(entrypoint)
			w, err := watcher.New(watcher.Config{
				Paths:      []string{filepath.Dir(abs)},
				Exclude:    env.cfg.DataFiles.ExcludeDirs,
				Extensions: p.Extensions(),
				Logger:     env.logger,
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer w.Close()

			events, err := w.Start(ctx)
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for %s changes (Ctrl-C to stop)...\n", filepath.Dir(abs), p.Language())

			for evt := range events {
				env.logger.Info("source changed",
					slog.String("path", evt.Path),
					slog.String("op", evt.Op.String()),
				)
				if err := env.analyzeOnce(ctx, cmd, entrypoint); err != nil {
					// The entrypoint may be mid-rename; keep watching.
					env.logger.Error("analysis failed", slog.Any("error", err))
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Stopped watching.")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// analyzeOnce runs a complete analysis with fresh run state and rewrites
// the output.
func (e *runEnv) analyzeOnce(ctx context.Context, cmd *cobra.Command, entrypoint string) error {
	start := time.Now()
	report, err := e.analyzer.Run(ctx, entrypoint, e.options())
	if err != nil {
		return err
	}
	if err := e.sink.finish(ctx, report.Graph); err != nil {
		return err
	}
	if err := writeGraph(ctx, report.Graph, e.cfg.Output.Format, e.cfg.Output.Path, cmd.OutOrStdout()); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), report, time.Since(start))
	return nil
}
