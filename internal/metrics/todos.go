package metrics

import (
	"regexp"

	"github.com/aiai-labs/funcgraph/internal/parser"
)

// TodoCounter scans source for TODO, FIXME and HACK markers.
type TodoCounter struct{}

var (
	todoPattern  = regexp.MustCompile(`(?i)\bTODO\b`)
	fixmePattern = regexp.MustCompile(`(?i)\bFIXME\b`)
	hackPattern  = regexp.MustCompile(`(?i)\bHACK\b`)
)

func (c *TodoCounter) Calculate(source string, _ parser.Language) map[MetricType]int {
	return map[MetricType]int{
		TodoCount:  len(todoPattern.FindAllStringIndex(source, -1)),
		FixmeCount: len(fixmePattern.FindAllStringIndex(source, -1)),
		HackCount:  len(hackPattern.FindAllStringIndex(source, -1)),
	}
}
