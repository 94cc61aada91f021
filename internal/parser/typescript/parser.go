package typescript

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	tsgrammar "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// TypeScriptParser extracts functions, calls, imports and function context
// from TypeScript and JavaScript source files. The same instance serves
// both language tags.
type TypeScriptParser struct {
	ts  *sitter.Language
	tsx *sitter.Language
}

// NewParser creates a new TypeScript/JavaScript parser.
func NewParser() *TypeScriptParser {
	return &TypeScriptParser{
		ts:  tsgrammar.GetLanguage(),
		tsx: tsx.GetLanguage(),
	}
}

func (p *TypeScriptParser) Language() parser.Language {
	return parser.LangTypeScript
}

func (p *TypeScriptParser) Extensions() []string {
	exts := append([]string{}, parser.FileExtensions[parser.LangTypeScript]...)
	return append(exts, parser.FileExtensions[parser.LangJavaScript]...)
}

func (p *TypeScriptParser) grammarFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".jsx":
		return p.tsx
	default:
		return p.ts
	}
}

func languageOf(path string) parser.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return parser.LangJavaScript
	default:
		return parser.LangTypeScript
	}
}

func (p *TypeScriptParser) ParseFile(ctx context.Context, path string, session *parser.Session) (*parser.Unit, error) {
	return parser.ParseWith(ctx, p.grammarFor(path), languageOf(path), path, session)
}

// ParseSource parses in-memory content as if it were the file at path.
func (p *TypeScriptParser) ParseSource(ctx context.Context, path string, content []byte, session *parser.Session) (*parser.Unit, error) {
	return parser.ParseBytes(ctx, p.grammarFor(path), languageOf(path), path, content, session)
}

// definition pairs an extracted function with the node spanning it.
type definition struct {
	fn   *graph.Function
	node *sitter.Node
}

func (p *TypeScriptParser) ExtractFunctions(unit *parser.Unit) ([]*graph.Function, error) {
	defs := collectDefinitions(unit)
	fns := make([]*graph.Function, len(defs))
	for i, d := range defs {
		fns[i] = d.fn
	}
	unit.Session.Record(fns...)
	return fns, nil
}

func collectDefinitions(unit *parser.Unit) []definition {
	var defs []definition
	add := func(name string, params *sitter.Node, node *sitter.Node) {
		paramText := "()"
		if params != nil {
			paramText = parser.NodeText(params, unit.Content)
			if params.Type() == "identifier" {
				paramText = "(" + paramText + ")"
			}
		}
		defs = append(defs, definition{
			node: node,
			fn: &graph.Function{
				Name:      name,
				FilePath:  unit.Path,
				LineStart: parser.StartLine(node),
				LineEnd:   parser.EndLine(node),
				Signature: name + paramText,
			},
		})
	}

	parser.Walk(unit.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration", "generator_function_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				add(parser.NodeText(name, unit.Content), n.ChildByFieldName("parameters"), n)
			}
		case "export_statement":
			if fn := defaultExportedFunction(n); fn != nil {
				add("default", parameters(fn), fn)
			}
		case "lexical_declaration", "variable_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				decl := n.NamedChild(i)
				if decl.Type() != "variable_declarator" {
					continue
				}
				name, value := decl.ChildByFieldName("name"), decl.ChildByFieldName("value")
				if name == nil || value == nil || name.Type() != "identifier" || !isFunctionValue(value) {
					continue
				}
				add(parser.NodeText(name, unit.Content), parameters(value), n)
			}
		case "public_field_definition", "field_definition":
			name := n.ChildByFieldName("name")
			if name == nil {
				name = n.ChildByFieldName("property")
			}
			value := n.ChildByFieldName("value")
			if name != nil && value != nil && isFunctionValue(value) {
				add(parser.NodeText(name, unit.Content), parameters(value), n)
			}
		case "method_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				add(parser.NodeText(name, unit.Content), n.ChildByFieldName("parameters"), n)
			}
		}
		return true
	})
	return defs
}

// defaultExportedFunction returns the anonymous function of an
// `export default function () {}` or `export default () => {}` statement.
func defaultExportedFunction(n *sitter.Node) *sitter.Node {
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			isDefault = true
			break
		}
	}
	if !isDefault {
		return nil
	}
	value := n.ChildByFieldName("value")
	if value == nil {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); isFunctionValue(child) {
				value = child
				break
			}
		}
	}
	if value == nil || !isFunctionValue(value) {
		return nil
	}
	if name := value.ChildByFieldName("name"); name != nil {
		return nil
	}
	return value
}

func isFunctionValue(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

func parameters(fn *sitter.Node) *sitter.Node {
	if params := fn.ChildByFieldName("parameters"); params != nil {
		return params
	}
	return fn.ChildByFieldName("parameter")
}

func (p *TypeScriptParser) IdentifyFunctionCalls(unit *parser.Unit, functions []*graph.Function) ([]parser.Call, error) {
	local := parser.IndexByName(functions)
	seen := make(map[[2]string]bool)
	var calls []parser.Call

	parser.Walk(unit.Root(), func(n *sitter.Node) bool {
		nameNode := calleeName(n)
		if nameNode == nil {
			return true
		}
		name := strings.TrimPrefix(parser.NodeText(nameNode, unit.Content), "#")
		callees, ok := local[name]
		if !ok {
			callees = unit.Session.Lookup(name)
		}
		if len(callees) == 0 {
			return true
		}
		caller := parser.FindContainingFunction(parser.StartLine(nameNode), functions)
		if caller != nil {
			calls = append(calls, parser.CallsTo(caller, callees, seen)...)
		}
		return true
	})
	return calls, nil
}

// calleeName returns the node naming the invoked function for call and new
// expressions: the identifier itself or the final member of an access.
func calleeName(n *sitter.Node) *sitter.Node {
	var target *sitter.Node
	switch n.Type() {
	case "call_expression":
		target = n.ChildByFieldName("function")
	case "new_expression":
		target = n.ChildByFieldName("constructor")
	default:
		return nil
	}
	if target == nil {
		return nil
	}
	switch target.Type() {
	case "identifier":
		return target
	case "member_expression":
		prop := target.ChildByFieldName("property")
		if prop != nil && (prop.Type() == "property_identifier" || prop.Type() == "private_property_identifier") {
			return prop
		}
	}
	return nil
}

// findDefinition locates the node that spans fn.
func findDefinition(unit *parser.Unit, fn *graph.Function) *sitter.Node {
	for _, d := range collectDefinitions(unit) {
		if d.fn.LineStart == fn.LineStart && d.fn.Name == fn.Name {
			return d.node
		}
	}
	return nil
}
