// Package controller assembles the system: one Controller owns the spec
// store, the planner, and the optional journal and telemetry sinks, and is
// passed explicitly to whoever needs it. There is no package-level
// instance.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specloom/specloom/internal/interpret"
	"github.com/specloom/specloom/internal/journal"
	"github.com/specloom/specloom/internal/planner"
	"github.com/specloom/specloom/internal/spec"
	"github.com/specloom/specloom/internal/specstore"
	"github.com/specloom/specloom/internal/taskqueue"
	"github.com/specloom/specloom/internal/telemetry"
)

// ErrUninterpretable is returned by Tell when the interpreter produced an
// empty payload. The interpreter itself never errors; this is the
// controller telling its caller nothing actionable was said.
var ErrUninterpretable = errors.New("instruction not understood")

// Controller wires the store's change stream into the planner and the
// audit sinks, and exposes the mutation and query surface the CLI uses.
type Controller struct {
	store   *specstore.Store
	planner *planner.Planner
	interp  interpret.Interpreter
	journal *journal.Journal
	emitter *telemetry.Emitter
	logger  *slog.Logger

	statePath string
	handle    specstore.Handle
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterpreter overrides the pattern-matching baseline interpreter.
func WithInterpreter(i interpret.Interpreter) Option {
	return func(c *Controller) { c.interp = i }
}

// WithJournal attaches a change-event journal. The controller takes
// ownership and closes it on Close.
func WithJournal(j *journal.Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithTelemetry attaches a telemetry emitter. The controller takes
// ownership and closes it on Close.
func WithTelemetry(e *telemetry.Emitter) Option {
	return func(c *Controller) { c.emitter = e }
}

// WithStatePath enables task-status persistence at the given path.
func WithStatePath(path string) Option {
	return func(c *Controller) { c.statePath = path }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New builds the controller around an opened store and the given planner,
// runs the initial decomposition, restores persisted task statuses, and
// subscribes to the store. The subscription runs the planner first and the
// audit sinks after it, so journaled events always describe an
// already-regenerated plan.
func New(store *specstore.Store, p *planner.Planner, opts ...Option) (*Controller, error) {
	c := &Controller{
		store:   store,
		planner: p,
		interp:  interpret.Patterns{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := c.planner.InitialPlan(); err != nil {
		return nil, fmt.Errorf("initial plan: %w", err)
	}
	if c.statePath != "" {
		state, err := planner.LoadState(c.statePath)
		if err != nil {
			return nil, fmt.Errorf("loading task state: %w", err)
		}
		c.planner.RestoreState(state)
	}

	c.handle = store.Subscribe(c.onChange)
	return c, nil
}

// onChange is the single store subscription: planner, then sinks.
func (c *Controller) onChange(ev specstore.ChangeEvent) {
	c.planner.OnChange(ev)

	if c.journal != nil {
		if err := c.journal.Record(context.Background(), ev); err != nil {
			c.logger.Warn("journaling change event", "event", ev.ID, "error", err)
		}
	}

	kind := telemetry.KindSpecChange
	if ev.Type == specstore.EventRolledBack {
		kind = telemetry.KindSpecRollback
	}
	c.emit(telemetry.Event{Kind: kind, Data: map[string]any{
		"event":    ev.ID,
		"type":     string(ev.Type),
		"author":   ev.Author,
		"affected": ev.AffectedFeatureIDs,
	}})

	res := c.planner.LastResult()
	c.emit(telemetry.Event{Kind: telemetry.KindPlanRegenerated, Data: map[string]any{
		"generated": res.Generated,
		"preserved": res.Preserved,
		"updated":   res.Updated,
	}})
	// Handlers run under the store's mutex; take the project name from the
	// event snapshot rather than calling back into the store.
	c.saveState(ev.Snapshot.ProjectName)
}

// Spec returns a copy of the live spec.
func (c *Controller) Spec() *spec.Spec {
	return c.store.Spec()
}

// Apply runs tagged operations against the store.
func (c *Controller) Apply(ops []specstore.Operation, author string) (*specstore.ChangeEvent, error) {
	return c.store.Apply(ops, author)
}

// Tell interprets a free-text instruction and applies the result. An
// instruction the interpreter cannot map returns ErrUninterpretable and
// changes nothing.
func (c *Controller) Tell(text, author string) (*specstore.ChangeEvent, error) {
	payload := c.interp.Parse(text, c.store.Spec().Features)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUninterpretable, text)
	}
	ops := specstore.PayloadToOps(payload, c.logger)
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUninterpretable, text)
	}
	return c.store.Apply(ops, author)
}

// Watch follows the spec document for out-of-band edits until the context
// is cancelled.
func (c *Controller) Watch(ctx context.Context) error {
	w, err := specstore.NewWatcher(c.store)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	c.emit(telemetry.Event{Kind: telemetry.KindWatchStart, Data: c.store.Path()})

	<-ctx.Done()
	w.Stop()
	c.emit(telemetry.Event{Kind: telemetry.KindWatchStop})
	return ctx.Err()
}

// Plan returns the outcome of the most recent regeneration.
func (c *Controller) Plan() planner.Result {
	return c.planner.LastResult()
}

// ExecutionPlan returns the leveled, scheduler-ordered execution plan.
func (c *Controller) ExecutionPlan() ([][]string, error) {
	return c.planner.ExecutionPlan()
}

// Tasks returns all tasks, sorted by ID.
func (c *Controller) Tasks() []taskqueue.Task {
	return c.planner.Queue().Tasks()
}

// ReadyTasks returns the tasks currently unblocked for execution.
func (c *Controller) ReadyTasks() []taskqueue.Task {
	return c.planner.Queue().Ready()
}

// StartTask marks a task in progress.
func (c *Controller) StartTask(id string) error {
	return c.transition(id, c.planner.Queue().Start, "in_progress")
}

// CompleteTask marks a task completed.
func (c *Controller) CompleteTask(id string) error {
	return c.transition(id, c.planner.Queue().Complete, "completed")
}

// FailTask marks a task failed.
func (c *Controller) FailTask(id string) error {
	return c.transition(id, c.planner.Queue().Fail, "failed")
}

// CancelTask marks a task cancelled.
func (c *Controller) CancelTask(id string) error {
	return c.transition(id, c.planner.Queue().Cancel, "cancelled")
}

func (c *Controller) transition(id string, fn func(string) error, to string) error {
	if err := fn(id); err != nil {
		return err
	}
	c.emit(telemetry.Event{Kind: telemetry.KindTaskState, TaskID: id, Data: map[string]string{"to": to}})
	c.saveState(c.store.Spec().ProjectName)
	return nil
}

// Subscribe registers an additional change handler on the underlying
// store, for callers that want raw events (the watch command's printer).
func (c *Controller) Subscribe(h specstore.Handler) specstore.Handle {
	return c.store.Subscribe(h)
}

// Versions returns the store's rollback history, oldest first.
func (c *Controller) Versions() []specstore.VersionSnapshot {
	return c.store.Versions()
}

// Rollback restores a version snapshot by index.
func (c *Controller) Rollback(index int) (*specstore.ChangeEvent, error) {
	return c.store.Rollback(index)
}

// History returns the most recent journaled events, newest first. Returns
// nil when no journal is attached.
func (c *Controller) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if c.journal == nil {
		return nil, nil
	}
	return c.journal.Recent(ctx, limit)
}

// Close detaches from the store, saves task state, and releases the sinks.
func (c *Controller) Close() error {
	c.store.Unsubscribe(c.handle)
	c.saveState(c.store.Spec().ProjectName)

	var errs []error
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.emitter.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Controller) saveState(project string) {
	if c.statePath == "" {
		return
	}
	if err := c.planner.SaveState(c.statePath, project); err != nil {
		c.logger.Warn("saving task state", "path", c.statePath, "error", err)
	}
}

func (c *Controller) emit(ev telemetry.Event) {
	if err := c.emitter.Emit(ev); err != nil {
		c.logger.Warn("emitting telemetry", "kind", ev.Kind, "error", err)
	}
}
