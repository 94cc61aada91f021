package typescript

import (
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aiai-labs/funcgraph/internal/parser"
)

// resolveExtensions is the probe order for extensionless specifiers.
var resolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".cjs", ".mjs", ".cts", ".mts", ".d.ts", ".json"}

func (p *TypeScriptParser) ExtractImports(unit *parser.Unit) ([]string, error) {
	abs, err := filepath.Abs(unit.Path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)

	var out []string
	seen := make(map[string]bool)
	for _, spec := range importSpecifiers(unit) {
		path := resolveSpecifier(spec, dir)
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	return out, nil
}

// importSpecifiers returns the module specifiers of static imports,
// re-exports, dynamic import() calls and require() calls, in source order.
func importSpecifiers(unit *parser.Unit) []string {
	var specs []string
	parser.Walk(unit.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement", "export_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				specs = append(specs, stripQuotes(parser.NodeText(src, unit.Content)))
			}
		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn == nil {
				return true
			}
			if fn.Type() == "import" || (fn.Type() == "identifier" && parser.NodeText(fn, unit.Content) == "require") {
				if arg := firstStringArgument(n); arg != nil {
					specs = append(specs, stripQuotes(parser.NodeText(arg, unit.Content)))
				}
			}
		}
		return true
	})
	return specs
}

func firstStringArgument(call *sitter.Node) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "string" {
			return arg
		}
		return nil
	}
	return nil
}

// resolveSpecifier maps a relative specifier to a file under dir. Bare
// package specifiers are not resolved.
func resolveSpecifier(spec, dir string) string {
	if !strings.HasPrefix(spec, ".") {
		return ""
	}
	base := filepath.Clean(filepath.Join(dir, spec))

	var candidates []string
	if hasKnownExtension(base) {
		candidates = append(candidates, base)
	} else {
		for _, ext := range resolveExtensions {
			candidates = append(candidates, base+ext, filepath.Join(base, "index"+ext))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

func hasKnownExtension(path string) bool {
	for _, ext := range resolveExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}
