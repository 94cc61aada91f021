package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry manages a collection of language parsers.
type Registry struct {
	mu       sync.RWMutex
	parsers  map[Language]Parser
	extIndex map[string]Parser
	order    []Language
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  make(map[Language]Parser),
		extIndex: make(map[string]Parser),
		order:    make([]Language, 0),
	}
}

// Register adds a parser to the registry under its own language and any
// aliases, indexing it by the file extensions of each.
func (r *Registry) Register(p Parser, aliases ...Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lang := range append([]Language{p.Language()}, aliases...) {
		if _, exists := r.parsers[lang]; !exists {
			r.order = append(r.order, lang)
		}
		r.parsers[lang] = p
		for _, ext := range FileExtensions[lang] {
			r.extIndex[ext] = p
		}
	}
	for _, ext := range p.Extensions() {
		r.extIndex[ext] = p
	}
}

// Get retrieves a parser by language.
func (r *Registry) Get(lang Language) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[lang]
	return p, ok
}

// GetByExtension retrieves a parser by file extension (e.g. ".py", ".ts").
func (r *Registry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.extIndex[strings.ToLower(ext)]
	return p, ok
}

// ForPath retrieves the parser for a file path by its extension.
func (r *Registry) ForPath(path string) (Parser, bool) {
	if strings.HasSuffix(path, ".d.ts") {
		return r.GetByExtension(".ts")
	}
	return r.GetByExtension(filepath.Ext(path))
}

// Languages returns the registered language tags in registration order.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Language, len(r.order))
	copy(out, r.order)
	return out
}

// SupportedExtensions returns all file extensions that have a registered
// parser, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extIndex))
	for ext := range r.extIndex {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
