package graph

import (
	"errors"
	"testing"
)

func fn(file, name string, start, end int) *Function {
	return &Function{Name: name, FilePath: file, LineStart: start, LineEnd: end, Signature: name + "()"}
}

func TestFunctionID(t *testing.T) {
	f := fn("/src/app.py", "main", 10, 20)
	if got, want := f.ID(), "/src/app.py:main:10"; got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}

	g := fn("/src/app.py", "main", 10, 99)
	if f.ID() != g.ID() {
		t.Error("LineEnd must not participate in identity")
	}
}

func TestAddFunctionOverwrites(t *testing.T) {
	g := NewDependencyGraph()
	g.AddFunction(fn("a.py", "f", 1, 3))
	replacement := fn("a.py", "f", 1, 5)
	g.AddFunction(replacement)

	if g.Len() != 1 {
		t.Fatalf("expected 1 function, got %d", g.Len())
	}
	got, err := g.Function("a.py:f:1")
	if err != nil {
		t.Fatalf("Function: %v", err)
	}
	if got != replacement {
		t.Error("expected the second AddFunction to win")
	}
}

func TestFunctionNotFound(t *testing.T) {
	g := NewDependencyGraph()
	if _, err := g.Function("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddDependencyInsertsEndpoints(t *testing.T) {
	g := NewDependencyGraph()
	a := fn("a.py", "a", 1, 2)
	b := fn("b.py", "b", 1, 2)

	g.AddDependency(a, b)

	if !g.Has(a.ID()) || !g.Has(b.ID()) {
		t.Fatal("expected both endpoints to be nodes")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
}

func TestAddDependencyIsSet(t *testing.T) {
	g := NewDependencyGraph()
	a := fn("a.py", "a", 1, 2)
	b := fn("a.py", "b", 4, 5)

	g.AddDependency(a, b)
	g.AddDependency(a, b)
	g.AddDependency(a, a)

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges (one duplicate collapsed, one self-edge), got %d", g.EdgeCount())
	}
	callees := g.Callees(a)
	if len(callees) != 2 {
		t.Fatalf("expected 2 callees, got %d", len(callees))
	}
}

func TestCallersCalleesEntrypointsLeaves(t *testing.T) {
	g := NewDependencyGraph()
	main := fn("m.py", "main", 1, 10)
	load := fn("m.py", "load", 12, 14)
	save := fn("m.py", "save", 16, 18)
	helper := fn("m.py", "helper", 20, 22)
	g.AddDependency(main, load)
	g.AddDependency(main, save)
	g.AddDependency(load, helper)
	g.AddDependency(save, helper)

	callers := g.Callers(helper)
	if len(callers) != 2 {
		t.Fatalf("expected 2 callers of helper, got %d", len(callers))
	}
	if callers[0].Name != "load" || callers[1].Name != "save" {
		t.Errorf("callers not sorted by identity: %s, %s", callers[0].Name, callers[1].Name)
	}

	roots := g.Entrypoints()
	if len(roots) != 1 || roots[0].Name != "main" {
		t.Errorf("expected main as the only entrypoint, got %v", names(roots))
	}

	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0].Name != "helper" {
		t.Errorf("expected helper as the only leaf, got %v", names(leaves))
	}
}

func TestEdgesSorted(t *testing.T) {
	g := NewDependencyGraph()
	b := fn("b.py", "b", 1, 1)
	a := fn("a.py", "a", 1, 1)
	c := fn("c.py", "c", 1, 1)
	g.AddDependency(b, c)
	g.AddDependency(a, c)
	g.AddDependency(a, b)

	edges := g.Edges()
	want := []Edge{
		{Caller: "a.py:a:1", Callee: "b.py:b:1"},
		{Caller: "a.py:a:1", Callee: "c.py:c:1"},
		{Caller: "b.py:b:1", Callee: "c.py:c:1"},
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d", len(want), len(edges))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}
}

func TestSetMetadata(t *testing.T) {
	f := fn("a.py", "f", 1, 1)
	f.SetMetadata("lines_of_code", 3)
	if f.Metadata["lines_of_code"] != 3 {
		t.Errorf("metadata not recorded: %v", f.Metadata)
	}
}

func names(fns []*Function) []string {
	out := make([]string, len(fns))
	for i, f := range fns {
		out[i] = f.Name
	}
	return out
}
