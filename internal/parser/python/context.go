package python

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// fileOperations are call names whose string arguments are treated as paths.
var fileOperations = map[string]bool{
	"open":        true,
	"read":        true,
	"write":       true,
	"load":        true,
	"save":        true,
	"read_text":   true,
	"read_bytes":  true,
	"write_text":  true,
	"write_bytes": true,
	"Path":        true,
	"dirname":     true,
	"join":        true,
}

// contextAccumulator collects everything found while visiting one function.
type contextAccumulator struct {
	docstring      string
	comments       []graph.Comment
	stringLiterals []graph.StringLiteral
	variables      []graph.Variable
	constants      []graph.Constant
	fileReferences []graph.FileReference
}

func (a *contextAccumulator) mergeInto(fn *graph.Function) {
	if a.docstring != "" {
		fn.Docstring = a.docstring
	}
	fn.Comments = append(fn.Comments, a.comments...)
	fn.StringLiterals = append(fn.StringLiterals, a.stringLiterals...)
	fn.Variables = append(fn.Variables, a.variables...)
	fn.Constants = append(fn.Constants, a.constants...)
	fn.FileReferences = append(fn.FileReferences, a.fileReferences...)
}

// contextVisitor walks a function_definition sub-tree.
type contextVisitor struct {
	content   []byte
	startLine int
	endLine   int
	acc       *contextAccumulator
}

func (p *PythonParser) ExtractFunctionContext(unit *parser.Unit, fn *graph.Function) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extracting context for %s: %v", fn.ID(), r)
		}
	}()

	def := findDefinition(unit, fn)
	if def == nil {
		return fmt.Errorf("definition of %s not found in %s", fn.ID(), unit.Path)
	}

	fn.SourceCode = parser.NodeText(def, unit.Content)

	acc := &contextAccumulator{}
	if body := def.ChildByFieldName("body"); body != nil {
		acc.docstring = docstring(body, unit.Content)
	}

	v := &contextVisitor{
		content:   unit.Content,
		startLine: fn.LineStart,
		endLine:   fn.LineEnd,
		acc:       acc,
	}
	parser.Walk(def, v.visit)

	acc.mergeInto(fn)
	return nil
}

func (v *contextVisitor) inSpan(n *sitter.Node) bool {
	return parser.StartLine(n) >= v.startLine && parser.EndLine(n) <= v.endLine
}

func (v *contextVisitor) visit(n *sitter.Node) bool {
	switch n.Type() {
	case "string":
		if v.inSpan(n) {
			v.acc.stringLiterals = append(v.acc.stringLiterals, graph.StringLiteral{
				Line: parser.StartLine(n),
				Text: stripQuotes(parser.NodeText(n, v.content)),
			})
		}
		return false
	case "comment":
		if v.inSpan(n) {
			v.acc.comments = append(v.acc.comments, graph.Comment{
				Line: parser.StartLine(n),
				Text: strings.TrimSpace(strings.TrimLeft(parser.NodeText(n, v.content), "#")),
			})
		}
		return false
	case "assignment":
		v.assignment(n)
	case "call":
		v.fileReference(n)
	}
	return true
}

func (v *contextVisitor) assignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil {
		return
	}
	right := n.ChildByFieldName("right")

	switch left.Type() {
	case "identifier":
		if right == nil {
			return
		}
		name := parser.NodeText(left, v.content)
		line := parser.StartLine(left)
		value := parser.NodeText(right, v.content)
		if parser.IsConstantName(name) {
			v.acc.constants = append(v.acc.constants, graph.Constant{Line: line, Name: name, Value: value})
			return
		}
		v.acc.variables = append(v.acc.variables, graph.Variable{Line: line, Name: name, Value: &value})
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple":
		for i := 0; i < int(left.NamedChildCount()); i++ {
			child := left.NamedChild(i)
			if child.Type() != "identifier" {
				continue
			}
			v.acc.variables = append(v.acc.variables, graph.Variable{
				Line: parser.StartLine(child),
				Name: parser.NodeText(child, v.content),
			})
		}
	}
}

func (v *contextVisitor) fileReference(n *sitter.Node) {
	callee := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if callee == nil || args == nil {
		return
	}

	var name string
	switch callee.Type() {
	case "identifier":
		name = parser.NodeText(callee, v.content)
	case "attribute":
		name = parser.NodeText(callee.ChildByFieldName("attribute"), v.content)
	}
	if !fileOperations[name] {
		return
	}

	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "string" {
			continue
		}
		v.acc.fileReferences = append(v.acc.fileReferences, graph.FileReference{
			Line: parser.StartLine(arg),
			Path: stripQuotes(parser.NodeText(arg, v.content)),
		})
	}
}

// docstring returns the body's leading bare string statement, if any.
func docstring(body *sitter.Node, content []byte) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	return strings.TrimSpace(stripQuotes(parser.NodeText(expr, content)))
}

// stripQuotes removes the string prefix and the surrounding quotes of a
// Python string literal.
func stripQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
