package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/datafiles"
)

func newProjectCmd() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "project <entrypoint>",
		Short: "Analyze an entrypoint and the data files next to it",
		Long: `Analyze the code reachable from the entrypoint (recursively, up to five
imports deep), then find the JSON and YAML files in the entrypoint's
directory and report which functions refer to them. Data files are
persisted when the sink supports them.`,
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
			result, err := env.analyzer.AnalyzeProject(ctx, args[0], datafiles.Options{
				Extensions:  env.cfg.DataFiles.Extensions,
				ExcludeDirs: env.cfg.DataFiles.ExcludeDirs,
				SkipFiles:   env.cfg.DataFiles.SkipFiles,
				Logger:      env.logger,
			})
			if err != nil {
				return err
			}
			if err := env.sink.finish(ctx, result.Graph); err != nil {
				return err
			}
			if err := writeGraph(ctx, result.Graph, env.cfg.Output.Format, env.cfg.Output.Path, cmd.OutOrStdout()); err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			printSummary(out, result.Report, time.Since(start))
			printSection(out, "Data Files")
			if len(result.DataFiles) == 0 {
				fmt.Fprintln(out, "    (none)")
			}
			root, _ := filepath.Abs(filepath.Dir(args[0]))
			for _, df := range result.DataFiles {
				name := df.Path
				if rel, err := filepath.Rel(root, df.Path); err == nil {
					name = rel
				}
				status := "valid"
				if !df.Valid {
					status = warnStyle.Render("invalid")
				}
				fmt.Fprintf(out, "    %s %s, %d references\n", labelStyle.Render(name), status, len(df.References))
				for _, ref := range df.References {
					fmt.Fprintf(out, "      %s (%s, line %d)\n", ref.FunctionName, ref.Kind, ref.Line)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	flags.registerOutput(cmd)
	return cmd
}
