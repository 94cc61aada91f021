package parser

import (
	"sync"

	"github.com/aiai-labs/funcgraph/internal/graph"
)

// Session indexes every function extracted during one analysis run by name,
// so that call resolution can reach definitions in previously visited files.
// A Session belongs to a single run and must not be shared across runs.
type Session struct {
	mu     sync.RWMutex
	byName map[string][]*graph.Function
	seen   map[string]struct{}
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		byName: make(map[string][]*graph.Function),
		seen:   make(map[string]struct{}),
	}
}

// Record adds functions to the index. A function already recorded under the
// same identity is not added twice.
func (s *Session) Record(fns ...*graph.Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fn := range fns {
		id := fn.ID()
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.byName[fn.Name] = append(s.byName[fn.Name], fn)
	}
}

// Lookup returns every recorded function named name, in recording order.
func (s *Session) Lookup(name string) []*graph.Function {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fns := s.byName[name]
	out := make([]*graph.Function, len(fns))
	copy(out, fns)
	return out
}

// Len returns the number of recorded functions.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
