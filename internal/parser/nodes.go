package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeText returns the source text spanned by node.
func NodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(content)
}

// StartLine returns the 1-indexed first line of node.
func StartLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// EndLine returns the 1-indexed last line of node.
func EndLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// Walk visits node and its descendants depth-first in source order.
// Returning false from visit skips the node's children.
func Walk(node *sitter.Node, visit func(n *sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), visit)
	}
}

// RunQuery executes pattern over node and calls fn once per match with its
// captures keyed by capture name.
func RunQuery(pattern string, lang *sitter.Language, node *sitter.Node, content []byte, fn func(captures map[string]*sitter.Node)) error {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return fmt.Errorf("compiling query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, node)

	for {
		match, found := cursor.NextMatch()
		if !found {
			break
		}
		match = cursor.FilterPredicates(match, content)
		if len(match.Captures) == 0 {
			continue
		}
		captures := make(map[string]*sitter.Node, len(match.Captures))
		for _, c := range match.Captures {
			captures[q.CaptureNameForId(c.Index)] = c.Node
		}
		fn(captures)
	}
	return nil
}

// IsConstantName reports whether name follows the ALL_CAPS constant
// convention: at least one letter and no lowercase letters.
func IsConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}
