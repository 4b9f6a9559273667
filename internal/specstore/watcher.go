package specstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specloom/specloom/internal/spec"
)

// Watcher monitors the spec document for out-of-band edits using fsnotify.
// Detected changes are diffed against the live spec and funneled through
// the same Apply path as API mutations, so every writer observes one event
// contract.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	done     chan struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// watchAuthor is the author recorded for mutations detected on disk.
const watchAuthor = "filesystem"

// NewWatcher creates a watcher for the store's document. The parent
// directory is watched so editor rename-replace saves are still seen.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:    store,
		watcher:  fw,
		done:     make(chan struct{}),
		debounce: 100 * time.Millisecond,
		logger:   store.logger,
	}, nil
}

// Start begins watching. Stop must be called to release the watch. On
// failure the underlying watcher is released; Stop stays safe to call.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	target := filepath.Clean(w.store.Path())
	var pendingAt time.Time
	pending := false

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.resync()
				}
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = true
				pendingAt = time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(pendingAt) >= w.debounce {
				pending = false
				w.resync()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// resync re-parses the document and applies the difference to the live
// spec. The store's own writes are suppressed via the ignore-next flag.
func (w *Watcher) resync() {
	if w.store.ignoreNext.CompareAndSwap(true, false) {
		return
	}

	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		w.logger.Warn("reading changed document", "error", err)
		return
	}
	parsed, err := spec.Parse(data)
	if err != nil {
		w.logger.Warn("changed document failed to parse, keeping live spec", "error", err)
		return
	}

	ops := diffOps(w.store.Spec(), parsed)
	if len(ops) == 0 {
		return
	}

	if _, err := w.store.Apply(ops, watchAuthor); err != nil {
		w.logger.Warn("applying detected document change", "error", err)
	}
}

// diffOps computes the operations that transform current into parsed:
// removed feature IDs, added features, field updates for features present
// in both, and top-level metadata overrides.
func diffOps(current, parsed *spec.Spec) []Operation {
	var ops []Operation

	currentIDs := make(map[string]bool)
	for _, id := range current.FeatureIDs() {
		currentIDs[id] = true
	}
	parsedIDs := make(map[string]bool)
	for _, id := range parsed.FeatureIDs() {
		parsedIDs[id] = true
	}

	for _, id := range current.FeatureIDs() {
		if !parsedIDs[id] {
			ops = append(ops, RemoveFeature{ID: id})
		}
	}
	for _, f := range parsed.Features {
		if !currentIDs[f.ID] {
			ops = append(ops, AddFeature{Feature: f})
			continue
		}
		if fields := featureFieldDiff(*current.Feature(f.ID), f); len(fields) > 0 {
			ops = append(ops, UpdateFeature{ID: f.ID, Fields: fields})
		}
	}

	meta := make(map[string]any)
	if parsed.ProjectName != current.ProjectName {
		meta["project_name"] = parsed.ProjectName
	}
	if parsed.Overview != current.Overview {
		meta["overview"] = parsed.Overview
	}
	if len(meta) > 0 {
		ops = append(ops, SetMetadata{Fields: meta})
	}

	return ops
}

// featureFieldDiff returns the document-carried fields that differ.
// TechnicalDetails is excluded: the document grammar does not carry it, so
// comparing it would report a phantom change on every resync.
func featureFieldDiff(prev, next spec.Feature) map[string]any {
	fields := make(map[string]any)
	if next.Name != prev.Name {
		fields["name"] = next.Name
	}
	if next.Description != prev.Description {
		fields["description"] = next.Description
	}
	if next.Priority != prev.Priority {
		fields["priority"] = string(next.Priority)
	}
	if next.Status != prev.Status {
		fields["status"] = string(next.Status)
	}
	if !reflect.DeepEqual(next.Requirements, prev.Requirements) {
		fields["requirements"] = next.Requirements
	}
	if !reflect.DeepEqual(next.AcceptanceCriteria, prev.AcceptanceCriteria) {
		fields["acceptance_criteria"] = next.AcceptanceCriteria
	}
	if !reflect.DeepEqual(next.Dependencies, prev.Dependencies) {
		fields["dependencies"] = next.Dependencies
	}
	return fields
}

// IgnoreNextChange tells the watcher to skip the next detected document
// change. The store arms this automatically around its own writes; it is
// exposed for callers that rewrite the document out of band on purpose.
func (s *Store) IgnoreNextChange() {
	s.ignoreNext.Store(true)
}
