package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/implied/internal/ir"
)

// CycleWarning represents a cycle in the ordering graph of a predicate set.
//
// A cycle through at least one strict edge (x < y, y < x) can never hold
// and is reported at level "error". A cycle made only of non-strict edges
// (x <= y, y <= x) is satisfiable but forces every member equal, which is
// usually a modelling mistake, so it is reported at level "warning".
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["x", "y", "x"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" or "warning"
}

// AnalyzeCycles performs static cycle analysis on a predicate set.
//
// The algorithm:
//  1. Orient every variable-variable predicate from the smaller side to the
//     larger side (x < y and y > x both give x → y)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with more than one member as a cycle
//
// Self relations are not cycles here; Validate reports them separately.
// A DAG (no cycles) returns an empty warning list. Output order is
// deterministic.
func AnalyzeCycles(preds []*ir.Predicate) []CycleWarning {
	graph := buildOrderGraph(preds)
	if len(graph.edges) == 0 {
		return []CycleWarning{}
	}

	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// orderGraph maps variable → successors known to be at least as large.
type orderGraph struct {
	edges  map[string][]string
	strict map[[2]string]bool
}

func buildOrderGraph(preds []*ir.Predicate) orderGraph {
	g := orderGraph{
		edges:  make(map[string][]string),
		strict: make(map[[2]string]bool),
	}
	for _, p := range preds {
		if p == nil || p.IsBound() {
			continue
		}
		lo, hi := p.Left.Name().String(), p.Right.Name().String()
		if p.Cond.IsLower() {
			lo, hi = hi, lo
		}
		if lo == hi {
			continue
		}
		if _, ok := g.edges[hi]; !ok {
			g.edges[hi] = []string{}
		}
		key := [2]string{lo, hi}
		if !slices.Contains(g.edges[lo], hi) {
			g.edges[lo] = append(g.edges[lo], hi)
		}
		g.strict[key] = g.strict[key] || p.Cond.IsStrict()
	}
	for k := range g.edges {
		slices.Sort(g.edges[k])
	}
	return g
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each sorted by name. Nodes are visited in sorted
// order so the result does not depend on map iteration.
func tarjanSCC(graph orderGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph.edges))
	for node := range graph.edges {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph orderGraph) CycleWarning {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	strict := false
	for _, from := range scc {
		for _, to := range graph.edges[from] {
			if members[to] && graph.strict[[2]string{from, to}] {
				strict = true
			}
		}
	}

	path := reconstructCyclePath(scc, graph)
	pathStr := strings.Join(path, " → ")
	if strict {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Strict ordering cycle can never hold: %s", pathStr),
			Level:   "error",
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Non-strict ordering cycle forces equality: %s", pathStr),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph orderGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph.edges[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
