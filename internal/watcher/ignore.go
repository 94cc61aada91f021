package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// alwaysExcluded is applied under every root in addition to the
// configured patterns.
var alwaysExcluded = []string{".git"}

// ignoreRules holds the compiled .gitignore and exclude patterns of each
// watched root. Paths are matched relative to the root that contains them.
type ignoreRules struct {
	roots []rootRules
}

type rootRules struct {
	root  string
	rules *ignore.GitIgnore
}

func loadIgnoreRules(roots, exclude []string) (*ignoreRules, error) {
	lines := append(append([]string{}, alwaysExcluded...), exclude...)

	r := &ignoreRules{}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		gitignore := filepath.Join(abs, ".gitignore")
		var compiled *ignore.GitIgnore
		if _, err := os.Stat(gitignore); err == nil {
			compiled, err = ignore.CompileIgnoreFileAndLines(gitignore, lines...)
			if err != nil {
				return nil, err
			}
		} else if errors.Is(err, fs.ErrNotExist) {
			compiled = ignore.CompileIgnoreLines(lines...)
		} else {
			return nil, err
		}
		r.roots = append(r.roots, rootRules{root: abs, rules: compiled})
	}
	return r, nil
}

// Match reports whether path is ignored under any root.
func (r *ignoreRules) Match(path string) bool {
	return r.match(path, false)
}

// MatchDir is Match for a directory, so that directory-only patterns such
// as "build/" apply.
func (r *ignoreRules) MatchDir(path string) bool {
	return r.match(path, true)
}

func (r *ignoreRules) match(path string, dir bool) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, rr := range r.roots {
		rel, err := filepath.Rel(rr.root, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rr.rules.MatchesPath(rel) {
			return true
		}
		if dir && rr.rules.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}
