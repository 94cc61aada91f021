package parser

import "github.com/aiai-labs/funcgraph/internal/graph"

// FindContainingFunction returns the innermost function whose line range
// contains line. Among functions with the same smallest span the first one
// in functions wins. It returns nil when no function contains the line.
func FindContainingFunction(line int, functions []*graph.Function) *graph.Function {
	var best *graph.Function
	for _, fn := range functions {
		if !fn.Contains(line) {
			continue
		}
		if best == nil || fn.Span() < best.Span() {
			best = fn
		}
	}
	return best
}

// IndexByName groups functions by name, keeping declaration order.
func IndexByName(functions []*graph.Function) map[string][]*graph.Function {
	idx := make(map[string][]*graph.Function, len(functions))
	for _, fn := range functions {
		idx[fn.Name] = append(idx[fn.Name], fn)
	}
	return idx
}

// CallsTo builds one Call from caller to each callee, skipping callees
// already emitted for this caller.
func CallsTo(caller *graph.Function, callees []*graph.Function, seen map[[2]string]bool) []Call {
	var out []Call
	for _, callee := range callees {
		key := [2]string{caller.ID(), callee.ID()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Call{Caller: caller, Callee: callee})
	}
	return out
}
