// Package dag provides the directed acyclic graph engine for task
// dependencies. It supports cycle-rejecting edge insertion, topological
// leveling for parallel execution, ready-set queries, and critical path
// extraction.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrCycle is returned when an edge would introduce a dependency cycle,
// or when leveling discovers one.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Node represents a task in the DAG.
type Node struct {
	ID       string
	Priority int           // higher value = higher priority
	Duration time.Duration // estimated execution time, used by the critical path
}

// DAG represents a directed acyclic graph of tasks.
// Edges point from a node to its dependencies: if A depends on B,
// there is an edge from A to B.
type DAG struct {
	nodes map[string]*Node
	// deps maps nodeID → set of dependency IDs (forward edges).
	deps map[string]map[string]bool
	// dependents maps nodeID → set of dependent IDs (backward edges).
	dependents map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:      make(map[string]*Node),
		deps:       make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID, priority, and estimated duration.
// Returns ErrDuplicateNode if a node with that ID already exists.
func (d *DAG) AddNode(id string, priority int, duration time.Duration) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{ID: id, Priority: priority, Duration: duration}
	d.deps[id] = make(map[string]bool)
	d.dependents[id] = make(map[string]bool)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. The edge is rejected at insertion if it would create a
// self-loop or a cycle; it is never silently dropped.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.deps[from][to] {
		return nil
	}
	// A path from 'to' back to 'from' means this edge closes a cycle.
	if d.HasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.deps[from][to] = true
	d.dependents[to][from] = true
	return nil
}

// Remove removes a node and all its associated edges from the DAG.
// Returns ErrNodeNotFound if the node does not exist.
func (d *DAG) Remove(id string) error {
	if _, ok := d.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for dep := range d.deps[id] {
		delete(d.dependents[dep], id)
	}
	delete(d.deps, id)

	for dependent := range d.dependents[id] {
		delete(d.deps[dependent], id)
	}
	delete(d.dependents, id)

	delete(d.nodes, id)
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Contains reports whether a node with the given ID exists.
func (d *DAG) Contains(id string) bool {
	_, ok := d.nodes[id]
	return ok
}

// Nodes returns all node IDs in the DAG, sorted alphabetically.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Dependencies returns the direct dependency IDs of a node, sorted.
func (d *DAG) Dependencies(id string) []string {
	return sortedKeys(d.deps[id])
}

// Dependents returns the IDs of nodes that directly depend on id, sorted.
func (d *DAG) Dependents(id string) []string {
	return sortedKeys(d.dependents[id])
}

// Ready returns node IDs whose dependencies are all in the done set,
// excluding nodes that are themselves done. Results are sorted by
// priority descending with alphabetical tie-breaking.
func (d *DAG) Ready(done map[string]bool) []string {
	var ready []string
	for id := range d.nodes {
		if done[id] {
			continue
		}
		allMet := true
		for dep := range d.deps[id] {
			if !done[dep] {
				allMet = false
				break
			}
		}
		if allMet {
			ready = append(ready, id)
		}
	}
	return d.prioritySorted(ready)
}

// HasPath reports whether there is a directed path from src to dst
// through the dependency edges.
func (d *DAG) HasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.deps[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// prioritySorted returns a copy of ids sorted by node priority descending,
// with alphabetical ID as tiebreaker.
func (d *DAG) prioritySorted(ids []string) []string {
	if len(ids) <= 1 {
		return ids
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		pi := d.nodes[sorted[i]].Priority
		pj := d.nodes[sorted[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
