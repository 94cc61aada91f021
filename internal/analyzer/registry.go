package analyzer

import (
	"github.com/aiai-labs/funcgraph/internal/parser"
	"github.com/aiai-labs/funcgraph/internal/parser/python"
	"github.com/aiai-labs/funcgraph/internal/parser/typescript"
)

// DefaultRegistry returns a registry with the Python and
// TypeScript/JavaScript parsers registered.
func DefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()
	r.Register(python.NewParser())
	r.Register(typescript.NewParser(), parser.LangJavaScript)
	return r
}
