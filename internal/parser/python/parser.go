package python

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

const functionQuery = `
(function_definition
  name: (identifier) @function.name
  parameters: (parameters) @function.parameters
  body: (block)) @function.definition
`

const callQuery = `
(call function: (identifier) @call.name)
(call function: (attribute attribute: (identifier) @call.name))
`

// PythonParser extracts functions, calls, imports and function context from
// Python source files.
type PythonParser struct {
	lang *sitter.Language
}

// NewParser creates a new Python parser.
func NewParser() *PythonParser {
	return &PythonParser{lang: python.GetLanguage()}
}

func (p *PythonParser) Language() parser.Language {
	return parser.LangPython
}

func (p *PythonParser) Extensions() []string {
	return parser.FileExtensions[parser.LangPython]
}

func (p *PythonParser) ParseFile(ctx context.Context, path string, session *parser.Session) (*parser.Unit, error) {
	return parser.ParseWith(ctx, p.lang, parser.LangPython, path, session)
}

// ParseSource parses in-memory content as if it were the file at path.
func (p *PythonParser) ParseSource(ctx context.Context, path string, content []byte, session *parser.Session) (*parser.Unit, error) {
	return parser.ParseBytes(ctx, p.lang, parser.LangPython, path, content, session)
}

func (p *PythonParser) ExtractFunctions(unit *parser.Unit) ([]*graph.Function, error) {
	var fns []*graph.Function
	err := parser.RunQuery(functionQuery, p.lang, unit.Root(), unit.Content, func(c map[string]*sitter.Node) {
		def, name := c["function.definition"], c["function.name"]
		if def == nil || name == nil {
			return
		}
		fnName := parser.NodeText(name, unit.Content)
		fns = append(fns, &graph.Function{
			Name:      fnName,
			FilePath:  unit.Path,
			LineStart: parser.StartLine(def),
			LineEnd:   parser.EndLine(def),
			Signature: fnName + parser.NodeText(c["function.parameters"], unit.Content),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("extracting functions from %s: %w", unit.Path, err)
	}
	return fns, nil
}

func (p *PythonParser) IdentifyFunctionCalls(unit *parser.Unit, functions []*graph.Function) ([]parser.Call, error) {
	byName := parser.IndexByName(functions)
	seen := make(map[[2]string]bool)
	var calls []parser.Call
	err := parser.RunQuery(callQuery, p.lang, unit.Root(), unit.Content, func(c map[string]*sitter.Node) {
		name := c["call.name"]
		if name == nil {
			return
		}
		callees, ok := byName[parser.NodeText(name, unit.Content)]
		if !ok {
			return
		}
		caller := parser.FindContainingFunction(parser.StartLine(name), functions)
		if caller == nil {
			return
		}
		calls = append(calls, parser.CallsTo(caller, callees, seen)...)
	})
	if err != nil {
		return nil, fmt.Errorf("identifying calls in %s: %w", unit.Path, err)
	}
	return calls, nil
}

// findDefinition locates the function_definition node for fn.
func findDefinition(unit *parser.Unit, fn *graph.Function) *sitter.Node {
	var found *sitter.Node
	parser.Walk(unit.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "function_definition" && parser.StartLine(n) == fn.LineStart {
			if name := n.ChildByFieldName("name"); name != nil && parser.NodeText(name, unit.Content) == fn.Name {
				found = n
				return false
			}
		}
		return true
	})
	return found
}
