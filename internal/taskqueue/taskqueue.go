// Package taskqueue holds the per-task status store. Tasks move through
// pending → in_progress → completed/failed; "ready" is derived on query
// (pending with every dependency completed), never stored.
package taskqueue

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/specloom/specloom/internal/spec"
)

// ErrTaskNotFound is returned when an operation references an unknown task ID.
var ErrTaskNotFound = errors.New("task not found")

// ErrDuplicateTask is returned when adding a task whose ID already exists.
var ErrDuplicateTask = errors.New("duplicate task")

// ErrBadTransition is returned for a status change the state machine forbids.
var ErrBadTransition = errors.New("invalid status transition")

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Task is a unit of generated work decomposed from a feature.
type Task struct {
	ID                string
	Name              string
	EstimatedDuration time.Duration
	Dependencies      []string // task IDs
	Status            Status
	Priority          spec.Priority // inherited from the owning feature
	FeatureID         string
}

// Clone returns a copy of the task with its own dependency slice.
func (t Task) Clone() Task {
	out := t
	out.Dependencies = append([]string(nil), t.Dependencies...)
	return out
}

// Queue is the task status store. Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{tasks: make(map[string]*Task)}
}

// Add inserts a new pending task. Returns ErrDuplicateTask if the ID exists.
func (q *Queue) Add(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.tasks[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	t.Status = StatusPending
	stored := t.Clone()
	q.tasks[t.ID] = &stored
	return nil
}

// Remove deletes a task. Returns ErrTaskNotFound if the ID is unknown.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(q.tasks, id)
	return nil
}

// Get returns a copy of the task with the given ID.
func (q *Queue) Get(id string) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

// Contains reports whether a task with the given ID exists.
func (q *Queue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.tasks[id]
	return ok
}

// Start marks a pending task as in progress.
func (q *Queue) Start(id string) error {
	return q.transition(id, StatusInProgress, StatusPending)
}

// Complete marks an in-progress or pending task as completed. Completing
// straight from pending is allowed so external executors that skipped
// Start still converge.
func (q *Queue) Complete(id string) error {
	return q.transition(id, StatusCompleted, StatusPending, StatusInProgress)
}

// Fail marks an in-progress task as failed.
func (q *Queue) Fail(id string) error {
	return q.transition(id, StatusFailed, StatusInProgress)
}

// Cancel marks a pending or failed task as cancelled. Used when the owning
// feature is removed and the task is not recreated.
func (q *Queue) Cancel(id string) error {
	return q.transition(id, StatusCancelled, StatusPending, StatusFailed)
}

// SetStatus force-sets a task's status, bypassing the transition rules.
// Reserved for state restoration at startup.
func (q *Queue) SetStatus(id string, s Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t.Status = s
	return nil
}

func (q *Queue) transition(id string, to Status, from ...Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	for _, f := range from {
		if t.Status == f {
			t.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s, cannot move to %s", ErrBadTransition, id, t.Status, to)
}

// Ready returns tasks that are pending with every dependency completed,
// sorted by ID for deterministic output. Dependencies that are not in the
// queue at all block readiness.
func (q *Queue) Ready() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []Task
	for _, t := range q.tasks {
		if t.Status != StatusPending {
			continue
		}
		ok := true
		for _, dep := range t.Dependencies {
			d, exists := q.tasks[dep]
			if !exists || d.Status != StatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t.Clone())
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	return ready
}

// Tasks returns copies of all tasks, sorted by ID.
func (q *Queue) Tasks() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of tasks in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
