// Package schedule orders tasks for execution. Scheduling is a pure
// function over the task list: no state is kept between calls, and ties
// preserve the input order.
package schedule

import (
	"sort"

	"github.com/specloom/specloom/internal/dag"
	"github.com/specloom/specloom/internal/taskqueue"
)

// Strategy selects which optional score terms apply.
type Strategy string

const (
	// StrategyCriticalPath boosts tasks lying on the longest dependency chain.
	StrategyCriticalPath Strategy = "critical_path"
	// StrategyShortestFirst additionally favors tasks with small estimates.
	StrategyShortestFirst Strategy = "shortest_first"
)

// Weights holds the scoring coefficients.
type Weights struct {
	Priority     float64 // Wp: feature priority term
	Dependency   float64 // Wd: dependency count and dependent count terms
	CriticalPath float64 // Wc: flat boost for critical-path membership
	Duration     float64 // Wu: shortest-first duration term
}

// DefaultWeights returns the production coefficients.
func DefaultWeights() Weights {
	return Weights{
		Priority:     1.0,
		Dependency:   0.8,
		CriticalPath: 2.0,
		Duration:     0.5,
	}
}

// Scheduler computes a total execution order for a set of tasks.
type Scheduler struct {
	Strategy Strategy
	Weights  Weights
}

// New creates a scheduler with the given strategy and default weights.
func New(strategy Strategy) *Scheduler {
	return &Scheduler{Strategy: strategy, Weights: DefaultWeights()}
}

// ScheduleTasks returns task IDs ordered by descending score. Dependent
// counts and critical-path membership are computed once over the full
// input; the sort is stable so equal scores keep their relative order.
func (s *Scheduler) ScheduleTasks(tasks []taskqueue.Task) []string {
	if len(tasks) == 0 {
		return nil
	}

	inSet := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inSet[t.ID] = true
	}

	// dependents[id] = number of tasks in the set listing id as a dependency.
	dependents := make(map[string]int, len(tasks))
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if inSet[dep] {
				dependents[dep]++
			}
		}
	}

	critical := s.criticalSet(tasks, inSet)

	scores := make(map[string]float64, len(tasks))
	for _, t := range tasks {
		scores[t.ID] = s.CalculatePriority(t, dependents[t.ID], critical[t.ID])
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return scores[ids[i]] > scores[ids[j]]
	})
	return ids
}

// CalculatePriority computes the composite score for one task:
//
//	(base/10)·Wp + (1/(1+deps))·Wd + (dependents/10)·Wd
//	+ shortest-first: (1/(1+minutes/60))·Wu
//	+ critical path: Wc
func (s *Scheduler) CalculatePriority(t taskqueue.Task, dependentCount int, onCriticalPath bool) float64 {
	w := s.Weights

	score := float64(t.Priority.BaseScore()) / 10 * w.Priority
	score += 1 / (1 + float64(len(t.Dependencies))) * w.Dependency
	score += float64(dependentCount) / 10 * w.Dependency

	if s.Strategy == StrategyShortestFirst {
		score += 1 / (1 + t.EstimatedDuration.Minutes()/60) * w.Duration
	}
	if onCriticalPath {
		score += w.CriticalPath
	}
	return score
}

// criticalSet builds a throwaway graph over the input set and marks the
// members of its duration-weighted critical path. Edges referencing tasks
// outside the set are ignored.
func (s *Scheduler) criticalSet(tasks []taskqueue.Task, inSet map[string]bool) map[string]bool {
	g := dag.New()
	for _, t := range tasks {
		_ = g.AddNode(t.ID, t.Priority.BaseScore(), t.EstimatedDuration)
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if inSet[dep] {
				// Input came from an acyclic source; a rejected edge here
				// just falls out of the critical path computation.
				_ = g.AddEdge(t.ID, dep)
			}
		}
	}

	critical := make(map[string]bool)
	path, err := g.CriticalPath()
	if err != nil {
		return critical
	}
	for _, id := range path {
		critical[id] = true
	}
	return critical
}
