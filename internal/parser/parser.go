package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Language represents a supported programming language.
type Language string

const (
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
)

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[Language][]string{
	LangPython:     {".py", ".pyi"},
	LangTypeScript: {".ts", ".tsx", ".mts", ".cts"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
}

// Unit is a parsed source file ready for extraction.
type Unit struct {
	Path     string
	Language Language
	Content  []byte
	Tree     *sitter.Tree
	Session  *Session
}

// Root returns the root node of the unit's syntax tree.
func (u *Unit) Root() *sitter.Node {
	return u.Tree.RootNode()
}

// Close releases the syntax tree.
func (u *Unit) Close() {
	if u.Tree != nil {
		u.Tree.Close()
	}
}

// Call is a caller to callee relationship found in a unit.
type Call struct {
	Caller *graph.Function
	Callee *graph.Function
}

// Parser defines the capabilities every language-specific parser provides.
type Parser interface {
	// Language returns which language this parser handles.
	Language() Language

	// Extensions returns the file extensions this parser can handle.
	Extensions() []string

	// ParseFile reads and parses the file at path. Failures are returned
	// as *ParseError.
	ParseFile(ctx context.Context, path string, session *Session) (*Unit, error)

	// ExtractFunctions returns every named function definition in the unit.
	ExtractFunctions(unit *Unit) ([]*graph.Function, error)

	// IdentifyFunctionCalls attributes each call site whose name matches one
	// of functions to the innermost enclosing function.
	IdentifyFunctionCalls(unit *Unit, functions []*graph.Function) ([]Call, error)

	// ExtractImports resolves the unit's imports to absolute file paths.
	// Specifiers that do not resolve are dropped.
	ExtractImports(unit *Unit) ([]string, error)

	// ExtractFunctionContext fills the context fields of fn in place.
	ExtractFunctionContext(unit *Unit, fn *graph.Function) error
}

// ParseError reports a file that could not be read or parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseWith reads path and parses it with the given grammar.
func ParseWith(ctx context.Context, lang *sitter.Language, language Language, path string, session *Session) (*Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return ParseBytes(ctx, lang, language, path, content, session)
}

// ParseBytes parses content as if it had been read from path.
func ParseBytes(ctx context.Context, lang *sitter.Language, language Language, path string, content []byte, session *Session) (*Unit, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if session == nil {
		session = NewSession()
	}
	return &Unit{
		Path:     path,
		Language: language,
		Content:  content,
		Tree:     tree,
		Session:  session,
	}, nil
}
