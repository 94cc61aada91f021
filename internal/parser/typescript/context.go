package typescript

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aiai-labs/funcgraph/internal/graph"
	"github.com/aiai-labs/funcgraph/internal/parser"
)

// maxDocLines bounds the backward scan for a leading comment block.
const maxDocLines = 10

var dataFileSuffixes = []string{".json", ".yaml", ".yml", ".csv"}

func (p *TypeScriptParser) ExtractFunctionContext(unit *parser.Unit, fn *graph.Function) (err error) {
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
	if doc := leadingComment(unit.Content, fn.LineStart); doc != "" {
		fn.Docstring = doc
	}

	parser.Walk(def, func(n *sitter.Node) bool {
		switch n.Type() {
		case "string", "template_string":
			// The string keyword of a type annotation shares the node type.
			if !n.IsNamed() {
				return true
			}
			text := stripQuotes(parser.NodeText(n, unit.Content))
			line := parser.StartLine(n)
			fn.StringLiterals = append(fn.StringLiterals, graph.StringLiteral{Line: line, Text: text})
			if isDataFilePath(text) {
				fn.FileReferences = append(fn.FileReferences, graph.FileReference{Line: line, Path: text})
			}
			return false
		case "comment":
			fn.Comments = append(fn.Comments, graph.Comment{
				Line: parser.StartLine(n),
				Text: cleanComment(parser.NodeText(n, unit.Content)),
			})
			return false
		case "lexical_declaration", "variable_declaration":
			if !sameNode(n, def) {
				declarations(fn, n, unit.Content)
			}
		}
		return true
	})
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// declarations records the variables and constants bound by a declaration.
func declarations(fn *graph.Function, decl *sitter.Node, content []byte) {
	isConst := false
	if kind := decl.ChildByFieldName("kind"); kind != nil {
		isConst = parser.NodeText(kind, content) == "const"
	} else if decl.ChildCount() > 0 {
		isConst = decl.Child(0).Type() == "const"
	}

	for i := 0; i < int(decl.NamedChildCount()); i++ {
		d := decl.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		name := d.ChildByFieldName("name")
		if name == nil {
			continue
		}
		value := d.ChildByFieldName("value")

		if name.Type() != "identifier" {
			for _, id := range patternNames(name, content) {
				fn.Variables = append(fn.Variables, graph.Variable{Line: parser.StartLine(name), Name: id})
			}
			continue
		}

		varName := parser.NodeText(name, content)
		line := parser.StartLine(name)
		valueText := parser.NodeText(value, content)
		if isConst || parser.IsConstantName(varName) {
			fn.Constants = append(fn.Constants, graph.Constant{Line: line, Name: varName, Value: valueText})
			continue
		}
		var valuePtr *string
		if value != nil {
			valuePtr = &valueText
		}
		fn.Variables = append(fn.Variables, graph.Variable{Line: line, Name: varName, Value: valuePtr})
	}
}

// patternNames returns the identifiers bound by a destructuring pattern.
func patternNames(pattern *sitter.Node, content []byte) []string {
	var names []string
	parser.Walk(pattern, func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier", "shorthand_property_identifier_pattern":
			names = append(names, parser.NodeText(n, content))
			return false
		case "pair_pattern":
			if v := n.ChildByFieldName("value"); v != nil {
				names = append(names, patternNames(v, content)...)
			}
			return false
		}
		return true
	})
	return names
}

// leadingComment recovers a JSDoc or line-comment block that ends on the
// line directly above lineStart.
func leadingComment(content []byte, lineStart int) string {
	lines := strings.Split(string(content), "\n")
	var block []string
	for i := lineStart - 2; i >= 0 && i >= lineStart-1-maxDocLines; i-- {
		text := strings.TrimSpace(lines[i])
		if !isCommentLine(text) {
			break
		}
		block = append(block, text)
		if strings.HasPrefix(text, "/*") {
			break
		}
	}
	if len(block) == 0 {
		return ""
	}

	var doc []string
	for i := len(block) - 1; i >= 0; i-- {
		if cleaned := cleanComment(block[i]); cleaned != "" {
			doc = append(doc, cleaned)
		}
	}
	return strings.Join(doc, "\n")
}

func isCommentLine(text string) bool {
	return strings.HasPrefix(text, "/*") || strings.HasPrefix(text, "*") || strings.HasPrefix(text, "//")
}

func cleanComment(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "//") {
		return strings.TrimSpace(strings.TrimLeft(text, "/"))
	}
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimLeft(text, "*"))
}

func isDataFilePath(s string) bool {
	for _, suffix := range dataFileSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
