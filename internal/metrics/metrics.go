// Package metrics computes per-function code metrics and records them in the
// function's metadata.
package metrics

import (
	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// MetricType identifies a specific code metric. It doubles as the metadata key.
type MetricType string

const (
	CyclomaticComplexity MetricType = "cyclomatic_complexity"
	LinesOfCode          MetricType = "lines_of_code"
	BlankLines           MetricType = "blank_lines"
	CommentLines         MetricType = "comment_lines"
	CodeLines            MetricType = "code_lines"
	TodoCount            MetricType = "todo_count"
	FixmeCount           MetricType = "fixme_count"
	HackCount            MetricType = "hack_count"
)

// Calculator computes metrics for a piece of source code.
type Calculator interface {
	Calculate(source string, language parser.Language) map[MetricType]int
}

// CompositeCalculator runs multiple calculators and merges their results.
type CompositeCalculator struct {
	calculators []Calculator
}

// NewCompositeCalculator creates a CompositeCalculator with all built-in calculators.
func NewCompositeCalculator() *CompositeCalculator {
	return &CompositeCalculator{
		calculators: []Calculator{
			&CyclomaticComplexityCalculator{},
			&LinesOfCodeCalculator{},
			&TodoCounter{},
		},
	}
}

// Calculate runs all calculators and merges results into a single map.
func (c *CompositeCalculator) Calculate(source string, language parser.Language) map[MetricType]int {
	result := make(map[MetricType]int)
	for _, calc := range c.calculators {
		for k, v := range calc.Calculate(source, language) {
			result[k] = v
		}
	}
	return result
}

// Annotate stores the metrics of fn's source code in fn.Metadata. Existing
// metadata keys other than the metric names are left untouched. Functions
// without source code are skipped.
func (c *CompositeCalculator) Annotate(fn *graph.Function, language parser.Language) {
	if fn.SourceCode == "" {
		return
	}
	for k, v := range c.Calculate(fn.SourceCode, language) {
		fn.SetMetadata(string(k), v)
	}
}
