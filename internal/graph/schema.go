package graph

import (
	"fmt"
	"sort"
)

// Comment is a source comment found inside a function's span.
type Comment struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// StringLiteral is a string literal found inside a function's span.
type StringLiteral struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Variable is a simple assignment target. Value is nil for unpacking targets.
type Variable struct {
	Line  int     `json:"line"`
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// Constant is an assignment whose target follows the constant naming convention.
type Constant struct {
	Line  int    `json:"line"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FileReference is a string literal that names a file on disk.
type FileReference struct {
	Line int    `json:"line"`
	Path string `json:"path"`
}

// Function is one function, method or named arrow function definition
// together with the context gathered around it.
type Function struct {
	Name      string `json:"name"`
	FilePath  string `json:"file_path"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Signature string `json:"signature"`

	SourceCode     string          `json:"source_code,omitempty"`
	Docstring      string          `json:"docstring,omitempty"`
	Comments       []Comment       `json:"comments,omitempty"`
	StringLiterals []StringLiteral `json:"string_literals,omitempty"`
	Variables      []Variable      `json:"variables,omitempty"`
	Constants      []Constant      `json:"constants,omitempty"`
	FileReferences []FileReference `json:"file_references,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// ID returns the identity of the function: file path, name and first line.
// The end line does not participate.
func (f *Function) ID() string {
	return NewFunctionID(f.FilePath, f.Name, f.LineStart)
}

// Span returns the number of lines covered by the function minus one.
func (f *Function) Span() int {
	return f.LineEnd - f.LineStart
}

// Contains reports whether line lies within the function's inclusive range.
func (f *Function) Contains(line int) bool {
	return line >= f.LineStart && line <= f.LineEnd
}

// SetMetadata records a metadata value, allocating the map on first use.
func (f *Function) SetMetadata(key string, value any) {
	if f.Metadata == nil {
		f.Metadata = make(map[string]any)
	}
	f.Metadata[key] = value
}

// NewFunctionID builds the identity string for a function.
func NewFunctionID(filePath, name string, lineStart int) string {
	return fmt.Sprintf("%s:%s:%d", filePath, name, lineStart)
}

// SortFunctions orders functions by file path, first line and name.
func SortFunctions(fns []*Function) {
	sort.SliceStable(fns, func(i, j int) bool {
		a, b := fns[i], fns[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.Name < b.Name
	})
}
