package metrics

import (
	"regexp"

	"github.com/aiai-labs/funcgraph/internal/parser"
)

// CyclomaticComplexityCalculator estimates cyclomatic complexity using regex-based
// branch counting. The baseline complexity is 1; each branch keyword adds 1.
type CyclomaticComplexityCalculator struct{}

var branchPatterns = map[parser.Language][]*regexp.Regexp{
	parser.LangPython: {
		regexp.MustCompile(`\bif\b`),
		regexp.MustCompile(`\belif\b`),
		regexp.MustCompile(`\belse\b`),
		regexp.MustCompile(`\bfor\b`),
		regexp.MustCompile(`\bwhile\b`),
		regexp.MustCompile(`\bexcept\b`),
		regexp.MustCompile(`\band\b`),
		regexp.MustCompile(`\bor\b`),
		regexp.MustCompile(`\bwith\b`),
	},
	parser.LangTypeScript: {
		regexp.MustCompile(`\bif\b`),
		regexp.MustCompile(`\belse\b`),
		regexp.MustCompile(`\bcase\b`),
		regexp.MustCompile(`\bfor\b`),
		regexp.MustCompile(`\bwhile\b`),
		regexp.MustCompile(`\bdo\b`),
		regexp.MustCompile(`\bcatch\b`),
		regexp.MustCompile(`&&`),
		regexp.MustCompile(`\|\|`),
		regexp.MustCompile(`\?\?`),
	},
}

func init() {
	// JavaScript shares the same branch patterns as TypeScript.
	branchPatterns[parser.LangJavaScript] = branchPatterns[parser.LangTypeScript]
}

func (c *CyclomaticComplexityCalculator) Calculate(source string, language parser.Language) map[MetricType]int {
	complexity := 1 // baseline
	for _, p := range branchPatterns[language] {
		complexity += len(p.FindAllStringIndex(source, -1))
	}
	return map[MetricType]int{CyclomaticComplexity: complexity}
}
