package nested

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle is a set of queries that reference each other.
type Cycle struct {
	Path    []string `json:"path"`    // ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// Cycles finds every cycle among queries, reachable from a root or not.
//
// Order stops at the first cycle on the path it walks; Cycles reports all
// of them, which is what a query-set check wants. Templates that fail to
// parse are reported as errors.
//
// The algorithm:
//  1. Build name → referenced names from each template's markers
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-reference as a cycle
func Cycles(queries map[string]string) ([]Cycle, error) {
	graph := make(referenceGraph, len(queries))
	for name, src := range queries {
		tpl, err := Parse(name, src)
		if err != nil {
			return nil, err
		}
		refs := []string{}
		for _, ref := range tpl.References() {
			if _, ok := queries[ref.Name]; ok {
				refs = appendUnique(refs, ref.Name)
			}
		}
		graph[name] = refs
	}

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b Cycle) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return cycles, nil
}

// referenceGraph maps a query name to the names it references.
type referenceGraph map[string][]string

func hasSelfLoop(node string, graph referenceGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in name order so results are deterministic.
func tarjanSCC(graph referenceGraph) [][]string {
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
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC
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
			sccs = append(sccs, scc)
		}
	}

	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, visited := indices[name]; !visited {
			strongConnect(name)
		}
	}
	return sccs
}

// sccToCycle walks the SCC from its smallest name back to itself.
func sccToCycle(scc []string, graph referenceGraph) Cycle {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	path := []string{start}
	visited := map[string]bool{start: true}

	for current := start; ; {
		next := ""
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
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
		visited[next] = true
		current = next
	}

	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("query depends on itself: %s", strings.Join(path, " → ")),
	}
}
