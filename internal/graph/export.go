package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Format names an export rendering of a DependencyGraph.
type Format string

const (
	FormatJSON     Format = "json"
	FormatRichJSON Format = "rich-json"
	FormatDOT      Format = "dot"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported export format.
var Formats = []Format{FormatJSON, FormatRichJSON, FormatDOT, FormatMarkdown}

// Exporter can serialize all graph data (functions and edges) to a writer.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) error
}

// NewExporter returns the exporter for format over g. Exporters never
// modify the graph.
func NewExporter(format Format, g *DependencyGraph) (Exporter, error) {
	switch format {
	case FormatJSON:
		return &jsonExporter{g: g}, nil
	case FormatRichJSON:
		return &richJSONExporter{g: g}, nil
	case FormatDOT:
		return &dotExporter{g: g}, nil
	case FormatMarkdown:
		return &markdownExporter{g: g}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// StructureNode is one node of the structural projection.
type StructureNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	File      string         `json:"file"`
	LineStart int            `json:"line_start"`
	LineEnd   int            `json:"line_end"`
	Signature string         `json:"signature"`
	Metadata  map[string]any `json:"metadata"`
}

// StructureEdge is one edge of the structural projection.
type StructureEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Structure is the structural projection of a graph: nodes and edges only.
type Structure struct {
	Nodes []StructureNode `json:"nodes"`
	Edges []StructureEdge `json:"edges"`
}

// ToStructure builds the structural projection of g.
func (g *DependencyGraph) ToStructure() *Structure {
	s := &Structure{
		Nodes: make([]StructureNode, 0, g.Len()),
		Edges: make([]StructureEdge, 0, g.EdgeCount()),
	}
	for _, fn := range g.Functions() {
		md := fn.Metadata
		if md == nil {
			md = map[string]any{}
		}
		s.Nodes = append(s.Nodes, StructureNode{
			ID:        fn.ID(),
			Name:      fn.Name,
			File:      fn.FilePath,
			LineStart: fn.LineStart,
			LineEnd:   fn.LineEnd,
			Signature: fn.Signature,
			Metadata:  md,
		})
	}
	for _, e := range g.Edges() {
		s.Edges = append(s.Edges, StructureEdge{Source: e.Caller, Target: e.Callee})
	}
	return s
}

// FromStructure rebuilds a graph from its structural projection. Edges whose
// endpoints are not listed as nodes are rejected.
func FromStructure(s *Structure) (*DependencyGraph, error) {
	g := NewDependencyGraph()
	byID := make(map[string]*Function, len(s.Nodes))
	for _, n := range s.Nodes {
		fn := &Function{
			Name:      n.Name,
			FilePath:  n.File,
			LineStart: n.LineStart,
			LineEnd:   n.LineEnd,
			Signature: n.Signature,
		}
		if len(n.Metadata) > 0 {
			fn.Metadata = n.Metadata
		}
		if fn.ID() != n.ID {
			return nil, fmt.Errorf("node %q does not match its fields (%q)", n.ID, fn.ID())
		}
		byID[n.ID] = fn
		g.AddFunction(fn)
	}
	for _, e := range s.Edges {
		caller, ok := byID[e.Source]
		if !ok {
			return nil, fmt.Errorf("edge source %q: %w", e.Source, ErrNotFound)
		}
		callee, ok := byID[e.Target]
		if !ok {
			return nil, fmt.Errorf("edge target %q: %w", e.Target, ErrNotFound)
		}
		g.AddDependency(caller, callee)
	}
	return g, nil
}

// ImportStructure decodes structural JSON produced by the json exporter.
func ImportStructure(r io.Reader) (*DependencyGraph, error) {
	var s Structure
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding graph structure: %w", err)
	}
	return FromStructure(&s)
}

type jsonExporter struct{ g *DependencyGraph }

func (e *jsonExporter) Export(_ context.Context, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e.g.ToStructure())
}

type richFunction struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	FilePath       string          `json:"file_path"`
	LineStart      int             `json:"line_start"`
	LineEnd        int             `json:"line_end"`
	Signature      string          `json:"signature"`
	SourceCode     string          `json:"source_code"`
	Docstring      *string         `json:"docstring"`
	Comments       []Comment       `json:"comments"`
	StringLiterals []StringLiteral `json:"string_literals"`
	Variables      []Variable      `json:"variables"`
	Constants      []Constant      `json:"constants"`
	FileReferences []FileReference `json:"file_references"`
}

type richDependency struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

type richGraph struct {
	Functions    []richFunction   `json:"functions"`
	Dependencies []richDependency `json:"dependencies"`
}

type richJSONExporter struct{ g *DependencyGraph }

func (e *richJSONExporter) Export(_ context.Context, w io.Writer) error {
	out := richGraph{
		Functions:    make([]richFunction, 0, e.g.Len()),
		Dependencies: make([]richDependency, 0, e.g.EdgeCount()),
	}
	for _, fn := range e.g.Functions() {
		rf := richFunction{
			ID:             fn.ID(),
			Name:           fn.Name,
			FilePath:       fn.FilePath,
			LineStart:      fn.LineStart,
			LineEnd:        fn.LineEnd,
			Signature:      fn.Signature,
			SourceCode:     fn.SourceCode,
			Comments:       orEmpty(fn.Comments),
			StringLiterals: orEmpty(fn.StringLiterals),
			Variables:      orEmpty(fn.Variables),
			Constants:      orEmpty(fn.Constants),
			FileReferences: orEmpty(fn.FileReferences),
		}
		if fn.Docstring != "" {
			doc := fn.Docstring
			rf.Docstring = &doc
		}
		out.Functions = append(out.Functions, rf)
	}
	for _, edge := range e.g.Edges() {
		out.Dependencies = append(out.Dependencies, richDependency{Caller: edge.Caller, Callee: edge.Callee})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type dotExporter struct{ g *DependencyGraph }

func (e *dotExporter) Export(_ context.Context, w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  node [shape=box];\n")
	for _, fn := range e.g.Functions() {
		fmt.Fprintf(&b, "  %s [label=%s, file=%s, line_start=%d, line_end=%d, signature=%s];\n",
			dotQuote(fn.ID()), dotQuote(fn.Name), dotQuote(fn.FilePath),
			fn.LineStart, fn.LineEnd, dotQuote(fn.Signature))
	}
	for _, edge := range e.g.Edges() {
		fmt.Fprintf(&b, "  %s -> %s;\n", dotQuote(edge.Caller), dotQuote(edge.Callee))
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

type markdownExporter struct{ g *DependencyGraph }

func (e *markdownExporter) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, RenderMarkdown(e.g))
	return err
}

// RenderMarkdown renders g as a Markdown report ending in a Mermaid flowchart.
func RenderMarkdown(g *DependencyGraph) string {
	var b strings.Builder
	b.WriteString("# Function Dependency Graph\n\n")

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total functions: %d\n", g.Len())
	roots := g.Entrypoints()
	fmt.Fprintf(&b, "- Entry point functions: %d\n", len(roots))
	if len(roots) > 0 {
		fmt.Fprintf(&b, "  - %s\n", joinNames(roots))
	}
	leaves := g.Leaves()
	fmt.Fprintf(&b, "- Leaf functions: %d\n", len(leaves))
	if len(leaves) > 0 {
		fmt.Fprintf(&b, "  - %s\n", joinNames(leaves))
	}

	b.WriteString("\n## Function Details\n\n")
	fns := g.Functions()
	sort.SliceStable(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	for _, fn := range fns {
		writeFunctionDetails(&b, g, fn)
	}

	b.WriteString("\n## Visualization\n\n")
	b.WriteString("```mermaid\nflowchart TD\n")
	for _, fn := range g.Functions() {
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", MermaidID(fn.ID()), strings.ReplaceAll(fn.Name, `"`, "#quot;"))
	}
	for _, edge := range g.Edges() {
		fmt.Fprintf(&b, "    %s --> %s\n", MermaidID(edge.Caller), MermaidID(edge.Callee))
	}
	b.WriteString("```\n")
	return b.String()
}

func writeFunctionDetails(b *strings.Builder, g *DependencyGraph, fn *Function) {
	fmt.Fprintf(b, "### `%s`\n\n", fn.Name)
	fmt.Fprintf(b, "- **Location**: %s:%d-%d\n", fn.FilePath, fn.LineStart, fn.LineEnd)
	fmt.Fprintf(b, "- **Signature**: `%s`\n\n", fn.Signature)

	if fn.Docstring != "" {
		fmt.Fprintf(b, "**Docstring**:\n```\n%s\n```\n\n", fn.Docstring)
	}

	if callees := g.Callees(fn); len(callees) > 0 {
		b.WriteString("**Calls**:\n")
		for _, c := range callees {
			fmt.Fprintf(b, "- `%s`\n", c.Name)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("**Calls**: *No functions*\n\n")
	}

	if callers := g.Callers(fn); len(callers) > 0 {
		b.WriteString("**Called by**:\n")
		for _, c := range callers {
			fmt.Fprintf(b, "- `%s`\n", c.Name)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("**Called by**: *No functions*\n\n")
	}

	if len(fn.Comments) > 0 {
		b.WriteString("**Comments**:\n")
		for _, c := range fn.Comments {
			fmt.Fprintf(b, "- Line %d: `%s`\n", c.Line, c.Text)
		}
		b.WriteString("\n")
	}

	if len(fn.StringLiterals) > 0 {
		b.WriteString("**String Literals**:\n")
		for _, s := range fn.StringLiterals {
			// Short single-line strings are rarely prompts.
			if len(s.Text) > 20 || strings.Contains(s.Text, "\n") {
				fmt.Fprintf(b, "- Line %d: ```\n%s\n```\n", s.Line, s.Text)
			}
		}
		b.WriteString("\n")
	}

	if len(fn.Variables) > 0 {
		b.WriteString("**Variables**:\n")
		for _, v := range fn.Variables {
			if v.Value != nil && *v.Value != "" {
				fmt.Fprintf(b, "- Line %d: `%s` = `%s`\n", v.Line, v.Name, *v.Value)
			} else {
				fmt.Fprintf(b, "- Line %d: `%s`\n", v.Line, v.Name)
			}
		}
		b.WriteString("\n")
	}

	if len(fn.Constants) > 0 {
		b.WriteString("**Constants**:\n")
		for _, c := range fn.Constants {
			fmt.Fprintf(b, "- Line %d: `%s` = `%s`\n", c.Line, c.Name, c.Value)
		}
		b.WriteString("\n")
	}

	if len(fn.FileReferences) > 0 {
		b.WriteString("**File References**:\n")
		for _, r := range fn.FileReferences {
			fmt.Fprintf(b, "- Line %d: `%s`\n", r.Line, r.Path)
		}
		b.WriteString("\n")
	}

	if fn.SourceCode != "" {
		fmt.Fprintf(b, "**Source Code**:\n```%s\n%s\n```\n\n", fenceLanguage(fn.FilePath), fn.SourceCode)
	}
}

func joinNames(fns []*Function) string {
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.Name
	}
	return strings.Join(names, ", ")
}

var mermaidReplacer = strings.NewReplacer(":", "_", "/", "_", ".", "_")

// MermaidID turns a function identity into a Mermaid-safe node id.
func MermaidID(id string) string {
	return mermaidReplacer.Replace(id)
}

func fenceLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyi":
		return "python"
	case ".ts", ".mts", ".cts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	default:
		return ""
	}
}
