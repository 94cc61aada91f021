// Package analyzer walks a source tree from an entrypoint file and builds the
// function dependency graph, following imports depth-first.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/metrics"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

const tracerName = "funcgraph/analyzer"

var (
	// ErrEntrypointNotFound is returned when the entrypoint file does not exist.
	ErrEntrypointNotFound = errors.New("entrypoint not found")

	// ErrUnsupportedLanguage is returned when no parser handles the requested
	// language or the entrypoint's extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// FileStatus is the outcome of one attempted file.
type FileStatus string

const (
	StatusAnalyzed       FileStatus = "analyzed"
	StatusSkippedVisited FileStatus = "skipped_visited"
	StatusDepthExceeded  FileStatus = "depth_exceeded"
	StatusParseFailed    FileStatus = "parse_failed"
	StatusExtractFailed  FileStatus = "extract_failed"
)

// FileOutcome records what happened to a single file during a run.
type FileOutcome struct {
	Path      string
	Depth     int
	Status    FileStatus
	Functions int
	Calls     int
	Imports   []string
	Err       error
}

// Report is the result of a run: the graph and one outcome per attempted file.
type Report struct {
	Graph *graph.DependencyGraph
	Files []FileOutcome
}

// Count returns how many files ended with status.
func (r *Report) Count(status FileStatus) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Options controls a single analysis run.
type Options struct {
	// Language selects the parser. Empty means infer from the entrypoint's
	// extension.
	Language parser.Language

	// Recursive follows resolved imports into other files.
	Recursive bool

	// MaxDepth is the deepest import level analyzed; the entrypoint is depth 0.
	MaxDepth int
}

// Analyzer builds dependency graphs. It holds no per-run state, so one
// Analyzer may serve concurrent runs.
type Analyzer struct {
	registry *parser.Registry
	logger   *slog.Logger
	sink     graph.Sink
	tracer   trace.Tracer
	metrics  *Metrics
	calc     *metrics.CompositeCalculator
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithSink sets where successfully processed functions are persisted.
func WithSink(s graph.Sink) Option {
	return func(a *Analyzer) { a.sink = s }
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = t }
}

// WithMetrics sets the Prometheus collectors. Defaults to collectors
// registered on MetricsRegistry.
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New creates an Analyzer that dispatches files through registry.
func New(registry *parser.Registry, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		metrics:  defaultMetrics,
		calc:     metrics.NewCompositeCalculator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze builds the dependency graph reachable from entrypoint.
func (a *Analyzer) Analyze(ctx context.Context, entrypoint string, opts Options) (*graph.DependencyGraph, error) {
	report, err := a.Run(ctx, entrypoint, opts)
	if err != nil {
		return nil, err
	}
	return report.Graph, nil
}

// Run is Analyze with a per-file report.
func (a *Analyzer) Run(ctx context.Context, entrypoint string, opts Options) (*Report, error) {
	abs, err := filepath.Abs(entrypoint)
	if err != nil {
		return nil, fmt.Errorf("resolving entrypoint %s: %w", entrypoint, err)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrEntrypointNotFound, entrypoint)
	}

	p, err := a.ParserFor(abs, opts.Language)
	if err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.Run", trace.WithAttributes(
		attribute.String("entrypoint", abs),
		attribute.String("language", string(p.Language())),
		attribute.Bool("recursive", opts.Recursive),
		attribute.Int("max_depth", opts.MaxDepth),
	))
	defer span.End()

	r := &run{
		Analyzer: a,
		parser:   p,
		opts:     opts,
		visited:  make(map[string]struct{}),
		session:  parser.NewSession(),
		report:   &Report{Graph: graph.NewDependencyGraph()},
	}

	a.logger.Info("starting analysis",
		slog.String("entrypoint", abs),
		slog.String("language", string(p.Language())),
		slog.Bool("recursive", opts.Recursive),
		slog.Int("max_depth", opts.MaxDepth),
	)
	r.visit(ctx, abs, 0)

	g := r.report.Graph
	span.SetAttributes(
		attribute.Int("functions", g.Len()),
		attribute.Int("edges", g.EdgeCount()),
		attribute.Int("files", len(r.report.Files)),
	)
	a.logger.Info("analysis complete",
		slog.Int("functions", g.Len()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int("files", r.report.Count(StatusAnalyzed)),
	)
	return r.report, nil
}

// ParserFor returns the parser for lang, or for path's extension when lang
// is empty.
func (a *Analyzer) ParserFor(path string, lang parser.Language) (parser.Parser, error) {
	if lang != "" {
		if p, ok := a.registry.Get(lang); ok {
			return p, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	if p, ok := a.registry.ForPath(path); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: no parser for %s", ErrUnsupportedLanguage, filepath.Base(path))
}

// run is the mutable state of a single traversal.
type run struct {
	*Analyzer
	parser  parser.Parser
	opts    Options
	visited map[string]struct{}
	session *parser.Session
	report  *Report
}

func (r *run) record(out FileOutcome, lang parser.Language) {
	r.report.Files = append(r.report.Files, out)
	r.metrics.files.WithLabelValues(string(lang), string(out.Status)).Inc()
}

func (r *run) visit(ctx context.Context, path string, depth int) {
	lang := r.parser.Language()
	if _, seen := r.visited[path]; seen {
		r.logger.Debug("file already visited", slog.String("file", path))
		r.record(FileOutcome{Path: path, Depth: depth, Status: StatusSkippedVisited}, lang)
		return
	}
	if depth > r.opts.MaxDepth {
		r.logger.Info("max depth exceeded",
			slog.String("file", path),
			slog.Int("depth", depth),
			slog.Int("max_depth", r.opts.MaxDepth),
		)
		r.record(FileOutcome{Path: path, Depth: depth, Status: StatusDepthExceeded}, lang)
		return
	}
	r.visited[path] = struct{}{}

	out := r.analyzeFile(ctx, path, depth)
	r.record(out, lang)
	if out.Status != StatusAnalyzed {
		return
	}

	for _, imp := range out.Imports {
		if !r.opts.Recursive {
			r.logger.Debug("import noted", slog.String("file", path), slog.String("import", imp))
			continue
		}
		if _, err := os.Stat(imp); err != nil {
			r.logger.Debug("import not found", slog.String("file", path), slog.String("import", imp))
			continue
		}
		if p, ok := r.registry.ForPath(imp); !ok || p != r.parser {
			r.logger.Debug("import not handled by parser", slog.String("import", imp))
			continue
		}
		r.visit(ctx, imp, depth+1)
	}
}

func (r *run) analyzeFile(ctx context.Context, path string, depth int) FileOutcome {
	ctx, span := r.tracer.Start(ctx, "analyzer.analyzeFile", trace.WithAttributes(
		attribute.String("file", path),
		attribute.Int("depth", depth),
	))
	defer span.End()
	start := time.Now()
	defer func() { r.metrics.fileDuration.Observe(time.Since(start).Seconds()) }()

	out := FileOutcome{Path: path, Depth: depth}
	r.logger.Debug("analyzing file", slog.String("file", path), slog.Int("depth", depth))

	unit, err := r.parser.ParseFile(ctx, path, r.session)
	if err != nil {
		r.logger.Error("parse failed", slog.String("file", path), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		out.Status, out.Err = StatusParseFailed, err
		return out
	}
	defer unit.Close()

	fns, err := r.parser.ExtractFunctions(unit)
	if err != nil {
		r.logger.Error("function extraction failed", slog.String("file", path), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		out.Status, out.Err = StatusExtractFailed, err
		return out
	}
	r.metrics.functions.WithLabelValues(string(unit.Language)).Add(float64(len(fns)))

	g := r.report.Graph
	for _, fn := range fns {
		if existing, err := g.Function(fn.ID()); err == nil && existing.LineEnd != fn.LineEnd {
			r.logger.Warn("function identity collision",
				slog.String("id", fn.ID()),
				slog.Int("line_end", existing.LineEnd),
				slog.Int("new_line_end", fn.LineEnd),
			)
		}
		g.AddFunction(fn)
		r.processFunction(ctx, unit, fn)
	}

	calls, err := r.parser.IdentifyFunctionCalls(unit, fns)
	if err != nil {
		r.logger.Warn("call identification failed", slog.String("file", path), slog.Any("error", err))
	}
	for _, c := range calls {
		g.AddDependency(c.Caller, c.Callee)
	}

	imports, err := r.parser.ExtractImports(unit)
	if err != nil {
		r.logger.Warn("import extraction failed", slog.String("file", path), slog.Any("error", err))
	}

	span.SetAttributes(
		attribute.Int("functions", len(fns)),
		attribute.Int("calls", len(calls)),
		attribute.Int("imports", len(imports)),
	)
	out.Status = StatusAnalyzed
	out.Functions, out.Calls, out.Imports = len(fns), len(calls), imports
	return out
}

// processFunction extracts context for fn, annotates its metrics and
// persists it. Failures are logged and leave fn in the graph.
func (r *run) processFunction(ctx context.Context, unit *parser.Unit, fn *graph.Function) {
	if err := r.parser.ExtractFunctionContext(unit, fn); err != nil {
		r.logger.Warn("context extraction failed",
			slog.String("function", fn.ID()),
			slog.Any("error", err),
		)
		r.metrics.contextFailures.WithLabelValues(string(unit.Language)).Inc()
		return
	}
	r.calc.Annotate(fn, unit.Language)

	if r.sink == nil {
		return
	}
	if err := r.sink.UpsertFunction(ctx, fn); err != nil {
		r.logger.Error("sink upsert failed",
			slog.String("function", fn.ID()),
			slog.Any("error", err),
		)
		r.metrics.sinkFailures.Inc()
	}
}
