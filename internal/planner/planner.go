// Package planner keeps the task graph synchronized with the live spec.
// On every spec change it regenerates only the tasks belonging to the
// affected features, preserving work that is already completed or in
// flight.
package planner

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/specloom/specloom/internal/dag"
	"github.com/specloom/specloom/internal/schedule"
	"github.com/specloom/specloom/internal/spec"
	"github.com/specloom/specloom/internal/specstore"
	"github.com/specloom/specloom/internal/taskqueue"
)

// slowRegen is the latency above which a small regeneration gets flagged.
const slowRegen = 3 * time.Second

// Result summarizes one regeneration pass.
type Result struct {
	Duration         time.Duration
	Generated        int // tasks newly inserted
	Preserved        int // completed/in-progress tasks left untouched
	Updated          int // tasks removed and regenerated under the same ID
	AffectedFeatures []string
	ReadyTaskIDs     []string
}

// Planner owns the queue and graph derived from the spec and rebuilds the
// affected slice of them whenever the store reports a change.
type Planner struct {
	store  *specstore.Store
	queue  *taskqueue.Queue
	graph  *dag.DAG
	sched  *schedule.Scheduler
	dec    Decomposer
	logger *slog.Logger

	mu sync.Mutex
	// index maps feature ID → the task IDs the decomposer produced for it
	// on the most recent regeneration.
	index  map[string]map[string]bool
	handle specstore.Handle
	last   Result
}

// Option configures a Planner.
type Option func(*Planner)

// WithDecomposer overrides the default heuristic decomposer.
func WithDecomposer(d Decomposer) Option {
	return func(p *Planner) { p.dec = d }
}

// WithScheduler overrides the default critical-path scheduler.
func WithScheduler(s *schedule.Scheduler) Option {
	return func(p *Planner) { p.sched = s }
}

// WithLogger sets the planner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// New creates a planner bound to the given store. Call InitialPlan to
// populate the graph, then Attach to follow live changes.
func New(store *specstore.Store, opts ...Option) *Planner {
	p := &Planner{
		store:  store,
		queue:  taskqueue.New(),
		graph:  dag.New(),
		sched:  schedule.New(schedule.StrategyCriticalPath),
		dec:    HeuristicDecomposer{},
		logger: slog.Default(),
		index:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue exposes the planner-owned task queue.
func (p *Planner) Queue() *taskqueue.Queue { return p.queue }

// Graph exposes the planner-owned dependency graph.
func (p *Planner) Graph() *dag.DAG { return p.graph }

// Attach subscribes the planner to the store's change stream.
func (p *Planner) Attach() {
	p.handle = p.store.Subscribe(p.OnChange)
}

// Detach removes the store subscription installed by Attach.
func (p *Planner) Detach() {
	p.store.Unsubscribe(p.handle)
}

// OnChange is the store subscription entry point.
func (p *Planner) OnChange(ev specstore.ChangeEvent) {
	if _, err := p.Regenerate(ev); err != nil {
		p.logger.Error("regeneration failed", "event", string(ev.Type), "error", err)
	}
}

// InitialPlan decomposes every feature of the current spec from scratch.
func (p *Planner) InitialPlan() (Result, error) {
	snapshot := p.store.Spec()
	return p.regenerate(snapshot.FeatureIDs(), snapshot)
}

// Regenerate rebuilds the tasks of the features the event touched. Tasks
// in completed or in_progress status are never removed or mutated; the
// rest are replaced by a fresh decomposition of the feature's current
// shape. Features absent from the event snapshot lose their remaining
// regenerable tasks entirely.
func (p *Planner) Regenerate(ev specstore.ChangeEvent) (Result, error) {
	if ev.Snapshot == nil {
		return Result{}, fmt.Errorf("change event %s carries no snapshot", ev.ID)
	}
	return p.regenerate(ev.AffectedFeatureIDs, ev.Snapshot)
}

func (p *Planner) regenerate(affected []string, snapshot *spec.Spec) (Result, error) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	res := Result{AffectedFeatures: append([]string(nil), affected...)}

	// Partition the previously generated tasks of each affected feature.
	preserved := make(map[string]bool)
	removed := make(map[string]bool)
	for _, fid := range affected {
		for id := range p.index[fid] {
			t, err := p.queue.Get(id)
			if err != nil {
				continue // already gone, nothing to tear down
			}
			switch t.Status {
			case taskqueue.StatusCompleted, taskqueue.StatusInProgress:
				preserved[id] = true
			default:
				removed[id] = true
			}
		}
	}
	for id := range removed {
		if err := p.queue.Remove(id); err != nil {
			p.logger.Warn("stale task removal failed", "task", id, "error", err)
		}
		if p.graph.Contains(id) {
			_ = p.graph.Remove(id)
		}
	}
	res.Preserved = len(preserved)

	// Fresh decomposition for every affected feature still in the spec.
	// Nodes go in first; edges follow in a second pass so dependencies on
	// tasks of a later feature in the same batch still resolve.
	var inserted []TaskSpec
	for _, fid := range affected {
		f := snapshot.Feature(fid)
		if f == nil {
			delete(p.index, fid)
			continue
		}

		owned := make(map[string]bool)
		for _, ts := range p.dec.Decompose(*f) {
			owned[ts.ID] = true
			if preserved[ts.ID] {
				// Completed or in-flight work keeps its identity; the fresh
				// task with the same ID is not inserted over it.
				continue
			}
			if err := p.insert(ts, *f); err != nil {
				p.logger.Warn("task insertion failed", "task", ts.ID, "feature", fid, "error", err)
				continue
			}
			inserted = append(inserted, ts)
			if removed[ts.ID] {
				res.Updated++
			} else {
				res.Generated++
			}
		}
		p.index[fid] = owned
	}
	for _, ts := range inserted {
		for _, dep := range ts.DependsOn {
			if !p.graph.Contains(dep) {
				// Dangling gate: the dependency's feature is absent or its
				// insertion failed. The queue keeps the task blocked.
				p.logger.Warn("dependency edge skipped", "task", ts.ID, "dep", dep)
				continue
			}
			if err := p.graph.AddEdge(ts.ID, dep); err != nil {
				p.logger.Warn("dependency edge rejected", "task", ts.ID, "dep", dep, "error", err)
			}
		}
	}
	// Removing a regenerated task severed the incoming edges of every
	// surviving dependent — preserved tasks and tasks of unaffected
	// features gating on it alike. Rewire them from the queue's
	// dependency records now that the node is back.
	for _, t := range p.queue.Tasks() {
		if !p.graph.Contains(t.ID) {
			continue
		}
		for _, dep := range t.Dependencies {
			if removed[dep] && p.graph.Contains(dep) {
				_ = p.graph.AddEdge(t.ID, dep)
			}
		}
	}

	for _, t := range p.queue.Ready() {
		res.ReadyTaskIDs = append(res.ReadyTaskIDs, t.ID)
	}
	res.Duration = time.Since(start)
	if res.Duration > slowRegen && len(affected) <= 2 {
		p.logger.Warn("regeneration exceeded latency target",
			"duration", res.Duration,
			"affected_features", len(affected))
	}

	p.last = res
	p.logger.Debug("regeneration complete",
		"generated", res.Generated,
		"preserved", res.Preserved,
		"updated", res.Updated,
		"ready", len(res.ReadyTaskIDs))
	return res, nil
}

// insert adds one decomposed task to the queue and graph as a bare node;
// edges are wired by the caller once the whole batch is in.
func (p *Planner) insert(ts TaskSpec, f spec.Feature) error {
	task := taskqueue.Task{
		ID:                ts.ID,
		Name:              ts.Name,
		EstimatedDuration: ts.Duration,
		Dependencies:      append([]string(nil), ts.DependsOn...),
		Priority:          f.Priority,
		FeatureID:         f.ID,
	}
	if err := p.queue.Add(task); err != nil {
		return err
	}
	if err := p.graph.AddNode(ts.ID, f.Priority.BaseScore(), ts.Duration); err != nil {
		_ = p.queue.Remove(ts.ID)
		return err
	}
	return nil
}

// LastResult returns the outcome of the most recent regeneration.
func (p *Planner) LastResult() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// ExecutionPlan computes the parallel execution levels of the current
// graph and orders each level by scheduler score.
func (p *Planner) ExecutionPlan() ([][]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	levels, err := p.graph.ExecutionLevels()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]taskqueue.Task)
	for _, t := range p.queue.Tasks() {
		byID[t.ID] = t
	}
	for i, level := range levels {
		tasks := make([]taskqueue.Task, 0, len(level))
		for _, id := range level {
			if t, ok := byID[id]; ok {
				tasks = append(tasks, t)
			} else {
				// Graph node without a queue entry: keep its slot with a
				// bare task so the level stays complete.
				tasks = append(tasks, taskqueue.Task{ID: id})
			}
		}
		levels[i] = p.sched.ScheduleTasks(tasks)
	}
	return levels, nil
}
