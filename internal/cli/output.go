package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aiai-labs/funcgraph/internal/analyzer"
	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Style definitions for summaries.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
	warnStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"})
)

// writeGraph exports g in format to path, or to stdout when path is empty.
func writeGraph(ctx context.Context, g *graph.DependencyGraph, format, path string, stdout io.Writer) error {
	exporter, err := graph.NewExporter(graph.Format(format), g)
	if err != nil {
		return err
	}
	if path == "" {
		return exporter.Export(ctx, stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := exporter.Export(ctx, f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", format, err)
	}
	return f.Close()
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, key string, value any) {
	fmt.Fprintf(out, "    %s %s\n", labelStyle.Render(key), valueStyle.Render(fmt.Sprint(value)))
}

// printSummary renders the outcome of a run.
func printSummary(out io.Writer, report *analyzer.Report, elapsed time.Duration) {
	g := report.Graph
	fmt.Fprintln(out)
	printSection(out, "Analysis Summary")
	printKV(out, "Functions", g.Len())
	printKV(out, "Dependencies", g.EdgeCount())
	printKV(out, "Files analyzed", report.Count(analyzer.StatusAnalyzed))
	if n := report.Count(analyzer.StatusDepthExceeded); n > 0 {
		printKV(out, "Depth limited", n)
	}
	failed := report.Count(analyzer.StatusParseFailed) + report.Count(analyzer.StatusExtractFailed)
	if failed > 0 {
		fmt.Fprintf(out, "    %s %s\n", labelStyle.Render("Failed"), warnStyle.Render(fmt.Sprint(failed)))
	}
	printKV(out, "Elapsed", elapsed.Round(time.Millisecond))
	fmt.Fprintln(out)
}
