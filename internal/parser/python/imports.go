package python

import (
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aiai-labs/funcgraph/internal/parser"
)

// importSpec is one module reference found in an import statement.
type importSpec struct {
	module string
	level  int
	names  []string
}

func (p *PythonParser) ExtractImports(unit *parser.Unit) ([]string, error) {
	abs, err := filepath.Abs(unit.Path)
	if err != nil {
		return nil, err
	}
	currentDir := filepath.Dir(abs)

	var out []string
	seen := make(map[string]bool)
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, spec := range collectImports(unit) {
		if spec.module == "" && spec.level > 0 {
			resolved := false
			for _, name := range spec.names {
				if path := resolveModule(name, currentDir, spec.level); path != "" {
					add(path)
					resolved = true
				}
			}
			if !resolved {
				add(resolveModule("", currentDir, spec.level))
			}
			continue
		}
		add(resolveModule(spec.module, currentDir, spec.level))
	}
	return out, nil
}

func collectImports(unit *parser.Unit) []importSpec {
	var specs []importSpec
	parser.Walk(unit.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if name := importedName(n.NamedChild(i), unit.Content); name != "" {
					specs = append(specs, importSpec{module: name})
				}
			}
			return false
		case "import_from_statement":
			specs = append(specs, fromImport(n, unit.Content))
			return false
		}
		return true
	})
	return specs
}

func fromImport(n *sitter.Node, content []byte) importSpec {
	var spec importSpec
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode != nil {
		if moduleNode.Type() == "relative_import" {
			for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
				child := moduleNode.NamedChild(i)
				switch child.Type() {
				case "import_prefix":
					spec.level = strings.Count(parser.NodeText(child, content), ".")
				case "dotted_name":
					spec.module = parser.NodeText(child, content)
				}
			}
			if spec.level == 0 {
				text := parser.NodeText(moduleNode, content)
				spec.level = len(text) - len(strings.TrimLeft(text, "."))
			}
		} else {
			spec.module = parser.NodeText(moduleNode, content)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		if name := importedName(child, content); name != "" {
			spec.names = append(spec.names, name)
		}
	}
	return spec
}

func importedName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "dotted_name":
		return parser.NodeText(n, content)
	case "aliased_import":
		if name := n.ChildByFieldName("name"); name != nil {
			return parser.NodeText(name, content)
		}
		if n.NamedChildCount() > 0 {
			return parser.NodeText(n.NamedChild(0), content)
		}
	}
	return ""
}

// resolveModule maps a module name to a file. Relative imports first ascend
// level directories from currentDir. Package roots found by walking up
// through __init__.py-bearing directories are probed as well.
func resolveModule(module, currentDir string, level int) string {
	base := currentDir
	for i := 0; i < level; i++ {
		base = filepath.Dir(base)
	}

	rel := strings.ReplaceAll(module, ".", string(filepath.Separator))
	var candidates []string
	if module != "" {
		candidates = append(candidates,
			filepath.Join(base, rel+".py"),
			filepath.Join(base, rel, "__init__.py"))
	} else {
		candidates = append(candidates, filepath.Join(base, "__init__.py"))
	}

	if module != "" {
		for _, root := range packageRoots(currentDir) {
			candidates = append(candidates,
				filepath.Join(root, rel+".py"),
				filepath.Join(root, rel, "__init__.py"))
		}
	}

	for _, c := range candidates {
		if isRegularFile(c) {
			return c
		}
	}
	return ""
}

// packageRoots returns dir and each ancestor that holds an __init__.py,
// stopping at the first one without, plus the parent of the highest root.
func packageRoots(dir string) []string {
	var roots []string
	for {
		if !isRegularFile(filepath.Join(dir, "__init__.py")) {
			break
		}
		roots = append(roots, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if len(roots) > 0 {
		top := filepath.Dir(roots[len(roots)-1])
		if info, err := os.Stat(top); err == nil && info.IsDir() {
			roots = append(roots, top)
		}
	}
	return roots
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
