package graph

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned when a function identity is not present.
var ErrNotFound = errors.New("function not found")

// Edge is a directed call relationship between two function identities.
type Edge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// DependencyGraph stores functions keyed by identity and the call edges
// between them. Edges form a set: recording the same pair twice is a no-op.
// A DependencyGraph is not safe for concurrent mutation.
type DependencyGraph struct {
	nodes map[string]*Function
	edges map[string]map[string]struct{}
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Function),
		edges: make(map[string]map[string]struct{}),
	}
}

// AddFunction inserts fn, replacing any function with the same identity.
func (g *DependencyGraph) AddFunction(fn *Function) {
	g.nodes[fn.ID()] = fn
}

// AddDependency records that caller invokes callee. Endpoints missing from
// the graph are added first.
func (g *DependencyGraph) AddDependency(caller, callee *Function) {
	callerID, calleeID := caller.ID(), callee.ID()
	if _, ok := g.nodes[callerID]; !ok {
		g.nodes[callerID] = caller
	}
	if _, ok := g.nodes[calleeID]; !ok {
		g.nodes[calleeID] = callee
	}
	targets, ok := g.edges[callerID]
	if !ok {
		targets = make(map[string]struct{})
		g.edges[callerID] = targets
	}
	targets[calleeID] = struct{}{}
}

// Function returns the function stored under id.
func (g *DependencyGraph) Function(id string) (*Function, error) {
	fn, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return fn, nil
}

// Has reports whether id is a node of the graph.
func (g *DependencyGraph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of functions.
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// IDs returns all function identities in lexical order.
func (g *DependencyGraph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Functions returns all functions ordered by identity.
func (g *DependencyGraph) Functions() []*Function {
	ids := g.IDs()
	fns := make([]*Function, len(ids))
	for i, id := range ids {
		fns[i] = g.nodes[id]
	}
	return fns
}

// Edges returns every edge ordered by caller then callee.
func (g *DependencyGraph) Edges() []Edge {
	var out []Edge
	for caller, targets := range g.edges {
		for callee := range targets {
			out = append(out, Edge{Caller: caller, Callee: callee})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Caller != out[j].Caller {
			return out[i].Caller < out[j].Caller
		}
		return out[i].Callee < out[j].Callee
	})
	return out
}

// EdgeCount returns the number of distinct edges.
func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

// Callees returns the functions fn calls, ordered by identity.
func (g *DependencyGraph) Callees(fn *Function) []*Function {
	targets := g.edges[fn.ID()]
	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return g.lookup(ids)
}

// Callers returns the functions that call fn, ordered by identity.
func (g *DependencyGraph) Callers(fn *Function) []*Function {
	id := fn.ID()
	var ids []string
	for caller, targets := range g.edges {
		if _, ok := targets[id]; ok {
			ids = append(ids, caller)
		}
	}
	sort.Strings(ids)
	return g.lookup(ids)
}

// Entrypoints returns functions with no incoming edges.
func (g *DependencyGraph) Entrypoints() []*Function {
	called := make(map[string]bool)
	for _, targets := range g.edges {
		for id := range targets {
			called[id] = true
		}
	}
	var out []*Function
	for _, fn := range g.Functions() {
		if !called[fn.ID()] {
			out = append(out, fn)
		}
	}
	return out
}

// Leaves returns functions with no outgoing edges.
func (g *DependencyGraph) Leaves() []*Function {
	var out []*Function
	for _, fn := range g.Functions() {
		if len(g.edges[fn.ID()]) == 0 {
			out = append(out, fn)
		}
	}
	return out
}

func (g *DependencyGraph) lookup(ids []string) []*Function {
	fns := make([]*Function, 0, len(ids))
	for _, id := range ids {
		if fn, ok := g.nodes[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Sink receives every function that finished processing during a run.
// Implementations upsert by function identity.
type Sink interface {
	// UpsertFunction inserts or replaces the record for fn.
	UpsertFunction(ctx context.Context, fn *Function) error

	// Close releases any resources held by the sink.
	Close() error
}

// DataFileSink is implemented by sinks that also persist data files and
// the references functions make to them.
type DataFileSink interface {
	Sink
	UpsertDataFile(ctx context.Context, df *DataFile) error
}
