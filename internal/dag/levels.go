package dag

import (
	"fmt"
	"time"
)

// ExecutionLevels partitions the graph into topological batches using
// repeated zero-indegree extraction (Kahn's algorithm). Level 0 contains
// tasks with no unresolved dependency; level k+1 contains tasks whose
// dependencies all lie in levels ≤ k. Every node appears exactly once.
//
// Insertion-time cycle rejection makes a cycle here unreachable, but a
// residual frontier with no zero-indegree node still fails loudly with
// ErrCycle instead of looping forever.
func (d *DAG) ExecutionLevels() ([][]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.deps[id])
	}

	var levels [][]string
	remaining := len(d.nodes)

	for remaining > 0 {
		var level []string
		for id, deg := range inDegree {
			if deg == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("%w: %d node(s) unlevelable", ErrCycle, remaining)
		}

		level = d.prioritySorted(level)
		levels = append(levels, level)
		remaining -= len(level)

		for _, id := range level {
			delete(inDegree, id)
			for dependent := range d.dependents[id] {
				if _, ok := inDegree[dependent]; ok {
					inDegree[dependent]--
				}
			}
		}
	}

	return levels, nil
}

// CriticalPath returns the IDs on the longest dependency chain, weighted
// by estimated duration, in execution order. Returns ErrCycle if the graph
// cannot be topologically ordered.
func (d *DAG) CriticalPath() ([]string, error) {
	order, err := d.topologicalOrder()
	if err != nil {
		return nil, err
	}

	// dist[id] = total duration of the heaviest chain ending at id.
	dist := make(map[string]time.Duration, len(order))
	prev := make(map[string]string, len(order))
	for _, id := range order {
		best := time.Duration(0)
		from := ""
		for _, dep := range d.Dependencies(id) {
			if from == "" || dist[dep] > best {
				best = dist[dep]
				from = dep
			}
		}
		dist[id] = best + d.nodes[id].Duration
		if from != "" {
			prev[id] = from
		}
	}

	var end string
	var max time.Duration = -1
	for _, id := range order {
		if dist[id] > max {
			max = dist[id]
			end = id
		}
	}
	if end == "" {
		return nil, nil
	}

	var path []string
	for cur := end; cur != ""; cur = prev[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// topologicalOrder returns a dependency-first ordering of all nodes.
func (d *DAG) topologicalOrder() ([]string, error) {
	levels, err := d.ExecutionLevels()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(d.nodes))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}
