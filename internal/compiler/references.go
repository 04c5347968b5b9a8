package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/subq/internal/schema"
)

// CycleWarning reports models that reference each other in a loop.
//
// Cycles are warnings, not errors: a self-reference is an ordinary tree
// (a category with a parent category), and longer loops are legal as long
// as one side of the reference is nullable when rows are inserted.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Author", "Book", "Author"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// ReferenceOrder sorts models so that every model comes after the models
// it references, and reports reference cycles.
//
// The algorithm:
//  1. Build model → referenced model graph from field references
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Tarjan emits components in reverse topological order, which is the
//     order referenced tables must be filled in
//
// Members of a cycle keep their declaration order. References to unknown
// models are ignored; Validate reports them.
func ReferenceOrder(models []*schema.Model) ([]*schema.Model, []CycleWarning) {
	byName := make(map[string]*schema.Model, len(models))
	names := make([]string, 0, len(models))
	for _, m := range models {
		if _, dup := byName[m.Name]; dup {
			continue
		}
		byName[m.Name] = m
		names = append(names, m.Name)
	}

	graph := buildReferenceGraph(models, byName)
	sccs := tarjanSCC(names, graph)

	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}

	ordered := make([]*schema.Model, 0, len(names))
	var warnings []CycleWarning
	for _, scc := range sccs {
		// Restore declaration order within the component
		slices.SortFunc(scc, func(a, b string) int {
			return cmp.Compare(position[a], position[b])
		})
		for _, name := range scc {
			ordered = append(ordered, byName[name])
		}
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return ordered, warnings
}

// referenceGraph maps model name → names of the models it references.
type referenceGraph map[string][]string

func buildReferenceGraph(models []*schema.Model, byName map[string]*schema.Model) referenceGraph {
	graph := make(referenceGraph, len(byName))
	for _, m := range models {
		if graph[m.Name] == nil {
			graph[m.Name] = []string{}
		}
		for _, f := range m.Fields {
			if f.References == "" {
				continue
			}
			if _, ok := byName[f.References]; !ok {
				continue
			}
			graph[m.Name] = append(graph[m.Name], f.References)
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph referenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so the result is deterministic.
func tarjanSCC(nodes []string, graph referenceGraph) [][]string {
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

		// v is the root of a component: pop it off the stack
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

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts a component to a CycleWarning. Self-references
// are informational.
func cycleSCCToWarning(scc []string, graph referenceGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("%s references itself", name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the component from its first
// member until it returns to the start.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
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
