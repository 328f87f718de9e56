// Package graph schedules generators by their dependencies.
//
// Generators are executed in waves, every wave contains the
// generators whose dependencies were all rendered by earlier waves.
package graph

import (
	"fmt"
	"sort"

	"github.com/tamasfe/courier/pkg/errs"
)

// Node is a single generator in the graph.
type Node struct {
	ID           string
	Dependencies []string
}

// Graph is a dependency graph, edges point from
// a dependency to its dependents.
type Graph struct {
	order      []string
	deps       map[string][]string
	dependents map[string][]string
}

// Build creates the graph.
//
// Duplicate ids, self dependencies and dependencies on
// unknown ids are rejected. Cycles are only detected
// during execution.
func Build(nodes []Node) (*Graph, error) {
	counts := make(map[string]int, len(nodes))
	for _, n := range nodes {
		counts[n.ID]++
	}

	var duplicates []string
	for id, c := range counts {
		if c > 1 {
			duplicates = append(duplicates, id)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return nil, &errs.DuplicateIDError{IDs: duplicates}
	}

	g := &Graph{
		order:      make([]string, 0, len(nodes)),
		deps:       make(map[string][]string, len(nodes)),
		dependents: make(map[string][]string, len(nodes)),
	}

	for _, n := range nodes {
		g.order = append(g.order, n.ID)
		g.deps[n.ID] = nil
	}

	for _, n := range nodes {
		seen := make(map[string]bool, len(n.Dependencies))
		for _, d := range n.Dependencies {
			if d == n.ID {
				return nil, &errs.ConfigurationError{
					Generator: n.ID,
					Reason:    "generator depends on itself",
				}
			}

			if _, ok := g.deps[d]; !ok {
				return nil, &errs.ConfigurationError{
					Generator: n.ID,
					Reason:    fmt.Sprintf("depends on unknown generator %q", d),
				}
			}

			if seen[d] {
				continue
			}
			seen[d] = true

			g.deps[n.ID] = append(g.deps[n.ID], d)
			g.dependents[d] = append(g.dependents[d], n.ID)
		}
	}

	return g, nil
}

// Nodes returns the ids in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Dependencies returns the direct dependencies of a node.
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the nodes directly depending on a node.
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Plan returns the waves the graph would be executed in
// without running anything.
func (g *Graph) Plan() ([][]string, error) {
	done := make(map[string]bool, len(g.order))
	remaining := g.Nodes()

	var waves [][]string
	for len(remaining) > 0 {
		ready, waiting := g.split(remaining, func(id string) bool { return done[id] })
		if len(ready) == 0 {
			return waves, &errs.CircularDependencyError{IDs: remaining}
		}
		for _, id := range ready {
			done[id] = true
		}
		waves = append(waves, ready)
		remaining = waiting
	}

	return waves, nil
}

// split separates the nodes whose dependencies are all rendered.
func (g *Graph) split(ids []string, rendered func(string) bool) (ready, waiting []string) {
	for _, id := range ids {
		ok := true
		for _, d := range g.deps[id] {
			if !rendered(d) {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		} else {
			waiting = append(waiting, id)
		}
	}
	return ready, waiting
}
