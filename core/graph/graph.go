package graph

import (
	"fmt"
	"sync"

	"asset-pipeline/core/asset"
)

// Edge is one recorded dependency: dependent requires dependency,
// optionally only best-effort.
type Edge struct {
	Dependent  asset.ID
	Dependency asset.ID
	Required   bool
}

// Graph is the directed dependency graph over asset IDs. It is used
// forward (may a dependent transition to Loaded?) and in reverse (which
// dependents must be revisited when a source changes?).
//
// All mutation happens under one mutex; AddEdge's cycle check and
// insertion are a single critical section, so two concurrent edges that
// would close a cycle against each other cannot both land.
type Graph struct {
	mu      sync.RWMutex
	forward map[asset.ID]map[asset.ID]bool // dependent -> dependency -> required
	reverse map[asset.ID]map[asset.ID]struct{}
}

func New() *Graph {
	return &Graph{
		forward: make(map[asset.ID]map[asset.ID]bool),
		reverse: make(map[asset.ID]map[asset.ID]struct{}),
	}
}

// AddEdge records that dependent requires dependency. The edge that
// would complete a cycle is rejected with ErrCyclicDependency and not
// recorded; the error is attributed to the node adding the edge.
func (g *Graph) AddEdge(dependent, dependency asset.ID, required bool) error {
	if dependent == dependency {
		return fmt.Errorf("%q depends on itself: %w", dependent, asset.ErrCyclicDependency)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reachable(dependency, dependent) {
		return fmt.Errorf("%q -> %q closes a cycle: %w", dependent, dependency, asset.ErrCyclicDependency)
	}

	if g.forward[dependent] == nil {
		g.forward[dependent] = make(map[asset.ID]bool)
	}
	g.forward[dependent][dependency] = required
	if g.reverse[dependency] == nil {
		g.reverse[dependency] = make(map[asset.ID]struct{})
	}
	g.reverse[dependency][dependent] = struct{}{}
	return nil
}

// reachable reports whether to can be reached from from along forward
// edges. Caller holds the lock.
func (g *Graph) reachable(from, to asset.ID) bool {
	if from == to {
		return true
	}
	visited := map[asset.ID]struct{}{from: {}}
	stack := []asset.ID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.forward[n] {
			if dep == to {
				return true
			}
			if _, seen := visited[dep]; !seen {
				visited[dep] = struct{}{}
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// DependenciesOf returns the direct dependency edges of id.
func (g *Graph) DependenciesOf(id asset.ID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.forward[id]))
	for dep, required := range g.forward[id] {
		out = append(out, Edge{Dependent: id, Dependency: dep, Required: required})
	}
	return out
}

// DependentsOf returns the IDs that directly depend on id.
func (g *Graph) DependentsOf(id asset.ID) []asset.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]asset.ID, 0, len(g.reverse[id]))
	for dep := range g.reverse[id] {
		out = append(out, dep)
	}
	return out
}

// Affected returns the transitive dependents of the given IDs: every
// node whose content depends, directly or not, on one of them. The
// origin IDs themselves are not included. A visited set guards against
// revisiting nodes, so a diamond fan-in is reported once.
func (g *Graph) Affected(ids ...asset.ID) []asset.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[asset.ID]struct{}, len(ids))
	for _, id := range ids {
		visited[id] = struct{}{}
	}

	var out []asset.ID
	stack := append([]asset.ID(nil), ids...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.reverse[n] {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			out = append(out, dep)
			stack = append(stack, dep)
		}
	}
	return out
}

// ClearDependencies drops all outgoing edges of dependent. Called
// before re-recording edges on a reload, so stale dependencies do not
// linger.
func (g *Graph) ClearDependencies(dependent asset.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for dep := range g.forward[dependent] {
		delete(g.reverse[dep], dependent)
		if len(g.reverse[dep]) == 0 {
			delete(g.reverse, dep)
		}
	}
	delete(g.forward, dependent)
}

// RemoveNode drops id and every edge touching it.
func (g *Graph) RemoveNode(id asset.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.forward[id] {
		delete(g.reverse[dep], id)
		if len(g.reverse[dep]) == 0 {
			delete(g.reverse, dep)
		}
	}
	delete(g.forward, id)

	for dependent := range g.reverse[id] {
		delete(g.forward[dependent], id)
		if len(g.forward[dependent]) == 0 {
			delete(g.forward, dependent)
		}
	}
	delete(g.reverse, id)
}
