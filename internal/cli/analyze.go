package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <entrypoint>",
		Short: "Build the function dependency graph of an entrypoint",
		Long: `Parse the entrypoint, follow its imports (unless --recursive=false) and
write the graph of function calls in the selected format.

Examples:
  funcgraph analyze main.py
  funcgraph analyze src/index.ts --format markdown --output deps.md
  funcgraph analyze app.py --max-depth 2 --sink sqlite --sink-path funcs.db`,
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

			ctx := cmd.Context()
			start := time.Now()
			report, err := env.analyzer.Run(ctx, args[0], env.options())
			if err != nil {
				return err
			}
			if err := env.sink.finish(ctx, report.Graph); err != nil {
				return err
			}
			if err := writeGraph(ctx, report.Graph, env.cfg.Output.Format, env.cfg.Output.Path, cmd.OutOrStdout()); err != nil {
				return err
			}

			printSummary(cmd.ErrOrStderr(), report, time.Since(start))
			if env.cfg.Output.Path != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s graph to %s\n", env.cfg.Output.Format, env.cfg.Output.Path)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
