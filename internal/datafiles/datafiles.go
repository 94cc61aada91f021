// Package datafiles discovers JSON and YAML files next to analyzed sources
// and links them to the functions that mention them.
package datafiles

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"go.yaml.in/yaml/v3"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{
	".git", ".github", ".vscode", "__pycache__", "venv", "env",
	"node_modules", "migrations", ".venv", ".env",
}

// DefaultSkipFiles are manifest and lock files that are not data files.
var DefaultSkipFiles = []string{
	"package.json", "package-lock.json", "poetry.lock", "requirements.lock", "pyproject.toml",
}

// DefaultExtensions are the data file extensions looked for.
var DefaultExtensions = []string{".json", ".yaml", ".yml"}

// Options controls discovery. Empty fields fall back to the defaults.
type Options struct {
	Extensions  []string
	ExcludeDirs []string
	SkipFiles   []string
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.ExcludeDirs == nil {
		o.ExcludeDirs = DefaultExcludeDirs
	}
	if o.SkipFiles == nil {
		o.SkipFiles = DefaultSkipFiles
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}

// Find walks root and returns the sorted paths of data files under it.
// Paths matched by root's .gitignore are skipped.
func Find(root string, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	exts := toSet(opts.Extensions)
	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excluded[d] = true
	}
	skipped := make(map[string]bool, len(opts.SkipFiles))
	for _, f := range opts.SkipFiles {
		skipped[f] = true
	}

	var gi *ignore.GitIgnore
	if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = compiled
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != root && (excluded[d.Name()] || (gi != nil && gi.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !exts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if strings.HasPrefix(name, ".") || skipped[name] {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		opts.Logger.Debug("found data file", slog.String("path", path))
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// ErrUnsupportedType is returned by Load for files that are neither JSON
// nor YAML.
var ErrUnsupportedType = errors.New("unsupported data file type")

// TypeOf classifies a path by its extension.
func TypeOf(path string) (graph.DataFileType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return graph.DataFileJSON, true
	case ".yaml", ".yml":
		return graph.DataFileYAML, true
	}
	return "", false
}

// Load reads a data file and checks that it is well formed. An unreadable
// file yields an empty, invalid DataFile rather than an error.
func Load(path string) (*graph.DataFile, error) {
	typ, ok := TypeOf(path)
	if !ok {
		return nil, ErrUnsupportedType
	}
	df := &graph.DataFile{Path: path, Type: typ}

	content, err := os.ReadFile(path)
	if err != nil {
		return df, nil
	}
	df.Content = string(content)

	var v any
	switch typ {
	case graph.DataFileJSON:
		df.Valid = json.Unmarshal(content, &v) == nil
	case graph.DataFileYAML:
		df.Valid = yaml.Unmarshal(content, &v) == nil
	}
	return df, nil
}

// FindReferences returns one reference per function that mentions df. A
// function's recorded file references are checked first, then its source
// lines, then its string literals.
func FindReferences(df *graph.DataFile, functions []*graph.Function) []graph.DataFileReference {
	base := filepath.Base(df.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	mentions := func(s string) bool {
		return strings.Contains(s, base) || (stem != "" && strings.Contains(s, stem))
	}

	var refs []graph.DataFileReference
	for _, fn := range functions {
		ref := graph.DataFileReference{
			FunctionID:   fn.ID(),
			FunctionName: fn.Name,
			FilePath:     fn.FilePath,
		}
		if match(fn, base, mentions, &ref) {
			refs = append(refs, ref)
		}
	}
	return refs
}

func match(fn *graph.Function, base string, mentions func(string) bool, ref *graph.DataFileReference) bool {
	for _, fr := range fn.FileReferences {
		if filepath.Base(fr.Path) == base {
			ref.Kind, ref.Line, ref.Content = graph.RefFileReference, fr.Line, fr.Path
			return true
		}
	}
	if fn.SourceCode != "" {
		for i, line := range strings.Split(fn.SourceCode, "\n") {
			if mentions(line) {
				ref.Kind, ref.Line, ref.Content = graph.RefSourceCode, fn.LineStart+i, strings.TrimSpace(line)
				return true
			}
		}
	}
	for _, lit := range fn.StringLiterals {
		if mentions(lit.Text) {
			ref.Kind, ref.Line, ref.Content = graph.RefStringLiteral, lit.Line, lit.Text
			return true
		}
	}
	return false
}
