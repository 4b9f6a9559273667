package planner

import (
	"fmt"
	"time"

	"github.com/specloom/specloom/internal/spec"
)

// TaskSpec is one unit of work produced by feature decomposition, before
// insertion into the queue and graph.
type TaskSpec struct {
	ID        string
	Name      string
	Duration  time.Duration
	DependsOn []string // task IDs, within the feature or gating on another feature's tasks
}

// Decomposer turns a feature into a fresh task set with intra-feature
// dependency edges and duration estimates. Implementations must be
// idempotent: the same feature always yields the same task IDs, so
// regeneration can recognize previously generated work.
type Decomposer interface {
	Decompose(f spec.Feature) []TaskSpec
}

// HeuristicDecomposer is the deterministic baseline: a design task, one
// implementation task per requirement (or a single one when the feature
// lists none), and a verification task gated on all implementation work.
type HeuristicDecomposer struct{}

// Decompose produces the task set for one feature. When the feature
// depends on other features, its design task is gated on their verify
// tasks, which links the per-feature subgraphs together.
func (HeuristicDecomposer) Decompose(f spec.Feature) []TaskSpec {
	designID := f.ID + "-design"
	var gates []string
	for _, dep := range f.Dependencies {
		gates = append(gates, dep+"-verify")
	}
	tasks := []TaskSpec{{
		ID:        designID,
		Name:      "Design " + f.Name,
		Duration:  time.Hour,
		DependsOn: gates,
	}}

	var implIDs []string
	if len(f.Requirements) == 0 {
		id := f.ID + "-impl-1"
		implIDs = append(implIDs, id)
		tasks = append(tasks, TaskSpec{
			ID:        id,
			Name:      "Implement " + f.Name,
			Duration:  implDuration(f.Priority),
			DependsOn: []string{designID},
		})
	}
	for i, req := range f.Requirements {
		id := fmt.Sprintf("%s-impl-%d", f.ID, i+1)
		implIDs = append(implIDs, id)
		tasks = append(tasks, TaskSpec{
			ID:        id,
			Name:      "Implement: " + req,
			Duration:  implDuration(f.Priority),
			DependsOn: []string{designID},
		})
	}

	tasks = append(tasks, TaskSpec{
		ID:        f.ID + "-verify",
		Name:      "Verify " + f.Name,
		Duration:  time.Hour,
		DependsOn: implIDs,
	})
	return tasks
}

// implDuration scales the implementation estimate by feature priority:
// urgent features tend to be scoped tighter.
func implDuration(p spec.Priority) time.Duration {
	switch p {
	case spec.PriorityCritical, spec.PriorityHigh:
		return 2 * time.Hour
	default:
		return 3 * time.Hour
	}
}
