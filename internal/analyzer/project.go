package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aiai-labs/funcgraph/internal/datafiles"
	"github.com/aiai-labs/funcgraph/internal/graph"
)

// DefaultProjectDepth is the import depth used by AnalyzeProject.
const DefaultProjectDepth = 5

// ProjectResult is the outcome of a project analysis.
type ProjectResult struct {
	Report    *Report
	Graph     *graph.DependencyGraph
	DataFiles []*graph.DataFile
}

// AnalyzeProject analyzes the code reachable from entrypoint, then finds
// the data files in the entrypoint's directory and the functions that
// mention them. Data files are persisted when the sink accepts them.
func (a *Analyzer) AnalyzeProject(ctx context.Context, entrypoint string, dfOpts datafiles.Options) (*ProjectResult, error) {
	report, err := a.Run(ctx, entrypoint, Options{Recursive: true, MaxDepth: DefaultProjectDepth})
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.AnalyzeProject")
	defer span.End()

	abs, _ := filepath.Abs(entrypoint)
	root := filepath.Dir(abs)
	if dfOpts.Logger == nil {
		dfOpts.Logger = a.logger
	}
	paths, err := datafiles.Find(root, dfOpts)
	if err != nil {
		return nil, fmt.Errorf("finding data files in %s: %w", root, err)
	}
	a.logger.Info("found data files", slog.String("root", root), slog.Int("count", len(paths)))

	fns := report.Graph.Functions()
	dfSink, persist := a.sink.(graph.DataFileSink)

	result := &ProjectResult{Report: report, Graph: report.Graph}
	for _, path := range paths {
		df, err := datafiles.Load(path)
		if err != nil {
			a.logger.Warn("skipping data file", slog.String("path", path), slog.Any("error", err))
			continue
		}
		df.References = datafiles.FindReferences(df, fns)
		a.logger.Debug("data file references",
			slog.String("path", path),
			slog.Int("references", len(df.References)),
		)
		result.DataFiles = append(result.DataFiles, df)

		if !persist {
			continue
		}
		if err := dfSink.UpsertDataFile(ctx, df); err != nil {
			a.logger.Error("sink upsert failed", slog.String("data_file", path), slog.Any("error", err))
			a.metrics.sinkFailures.Inc()
		}
	}
	return result, nil
}
