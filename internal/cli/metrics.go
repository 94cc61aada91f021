package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/metrics"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// metricColumns is the display order of the per-function metrics.
var metricColumns = []metrics.MetricType{
	metrics.CyclomaticComplexity,
	metrics.LinesOfCode,
	metrics.CodeLines,
	metrics.CommentLines,
	metrics.TodoCount,
	metrics.FixmeCount,
	metrics.HackCount,
}

func newMetricsCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "metrics <file>",
		Short: "Show per-function code metrics",
		Long:  `Show complexity, size and TODO metrics for every function in a source file, most complex first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Log, cmd.ErrOrStderr())

			a := analyzer.New(analyzer.DefaultRegistry(), analyzer.WithLogger(logger))
			g, err := a.Analyze(cmd.Context(), args[0], analyzer.Options{Language: parser.Language(language)})
			if err != nil {
				return err
			}

			fns := g.Functions()
			sort.SliceStable(fns, func(i, j int) bool {
				return metricValue(fns[i], metrics.CyclomaticComplexity) > metricValue(fns[j], metrics.CyclomaticComplexity)
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Metrics for %s\n", args[0])
			fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", 40))

			fmt.Fprintf(out, "  %-30s", "function")
			for _, m := range metricColumns {
				fmt.Fprintf(out, " %8s", shortMetricName(m))
			}
			fmt.Fprintln(out)
			for _, fn := range fns {
				fmt.Fprintf(out, "  %-30s", fmt.Sprintf("%s:%d", fn.Name, fn.LineStart))
				for _, m := range metricColumns {
					fmt.Fprintf(out, " %8d", metricValue(fn, m))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "source language (default: from the file extension)")
	return cmd
}

// metricValue reads an annotated metric, 0 when absent.
func metricValue(fn *graph.Function, m metrics.MetricType) int {
	v, _ := fn.Metadata[string(m)].(int)
	return v
}

func shortMetricName(m metrics.MetricType) string {
	switch m {
	case metrics.CyclomaticComplexity:
		return "cc"
	case metrics.LinesOfCode:
		return "loc"
	case metrics.CodeLines:
		return "code"
	case metrics.CommentLines:
		return "comment"
	case metrics.TodoCount:
		return "todo"
	case metrics.FixmeCount:
		return "fixme"
	case metrics.HackCount:
		return "hack"
	default:
		return string(m)
	}
}
