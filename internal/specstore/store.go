// Package specstore owns the in-memory spec and its bidirectional sync
// with the on-disk document: tagged mutation operations, a bounded version
// history with rollback, synchronous change-event fan-out, and a file
// watcher that funnels out-of-band edits through the same mutation path.
package specstore

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specloom/specloom/internal/filelock"
	"github.com/specloom/specloom/internal/spec"
)

// maxVersions caps the in-memory history ring; the oldest snapshot is
// evicted on overflow. History is not persisted across restarts.
const maxVersions = 10

// defaultLockTimeout bounds the wait for the cross-process document lock.
const defaultLockTimeout = 5 * time.Second

// Handler receives change events. Handlers run synchronously inside the
// mutating call and must not invoke mutating store methods.
type Handler func(ChangeEvent)

// Handle identifies a subscription for later removal.
type Handle uint64

// Store is the single owner of a live spec. One in-process mutex serializes
// the read-modify-persist-emit sequence; an advisory file lock guards the
// document against writers in other processes.
type Store struct {
	mu   sync.Mutex
	path string
	spec *spec.Spec

	versions []VersionSnapshot // oldest first

	subsMu     sync.RWMutex
	subs       map[Handle]Handler
	nextHandle atomic.Uint64

	ignoreNext  atomic.Bool
	lock        *filelock.FileLock
	lockTimeout time.Duration

	broadcast func(ChangeEvent)
	logger    *slog.Logger
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithLockTimeout bounds advisory file lock acquisition.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// Open loads the spec document at path. A missing document yields the
// built-in default spec; a document that fails the grammar entirely is a
// fatal ErrLoad — no silent fallback once a document exists.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		subs:        make(map[Handle]Handler),
		lock:        filelock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.spec = spec.Default()
	case err != nil:
		return nil, fmt.Errorf("reading spec document: %w", err)
	default:
		parsed, perr := spec.Parse(data)
		if perr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, perr)
		}
		parsed.LastUpdated = time.Now()
		s.spec = parsed
	}

	return s, nil
}

// Path returns the document path the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Spec returns a deep copy of the live spec.
func (s *Store) Spec() *spec.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec.Clone()
}

// Apply runs a set of operations as one mutation: snapshot the pre-image
// into the version ring, apply every operation, stamp LastUpdated, persist
// the document under the file lock, then dispatch one ChangeEvent to every
// subscriber before returning it. The mutation either fully succeeds or
// fully fails; a failing operation or persist leaves memory, history, and
// document untouched.
func (s *Store) Apply(ops []Operation, author string) (*ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ops, author)
}

func (s *Store) applyLocked(ops []Operation, author string) (*ChangeEvent, error) {
	work := s.spec.Clone()
	tr := newChangeTracker()

	for _, op := range ops {
		if err := op.apply(work, tr); err != nil {
			return nil, err
		}
	}
	work.LastUpdated = time.Now()

	if err := s.persist(work); err != nil {
		return nil, err
	}

	s.pushVersion(VersionSnapshot{
		Timestamp: work.LastUpdated,
		Author:    author,
		Spec:      s.spec,
		Summary:   summarize(ops),
	})
	s.spec = work

	ev := newEvent(tr.eventType(), author, tr.affected(), work.Clone(), tr.diff())
	s.dispatch(*ev)
	return ev, nil
}

// persist writes the document atomically (temp + rename) under the
// cross-process advisory lock. Failure to acquire the lock within the
// bound surfaces as ErrConcurrencyTimeout with no partial write.
func (s *Store) persist(sp *spec.Spec) error {
	if err := s.lock.Acquire(s.lockTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrConcurrencyTimeout, err)
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			s.logger.Warn("releasing document lock", "error", err)
		}
	}()

	// Suppress the watcher echo of our own write.
	s.ignoreNext.Store(true)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, spec.Marshal(sp), 0o644); err != nil {
		s.ignoreNext.Store(false)
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		s.ignoreNext.Store(false)
		return fmt.Errorf("renaming document: %w", err)
	}
	return nil
}

// pushVersion appends a pre-mutation snapshot, evicting the oldest entry
// once the ring is full.
func (s *Store) pushVersion(v VersionSnapshot) {
	s.versions = append(s.versions, v)
	if len(s.versions) > maxVersions {
		s.versions = s.versions[len(s.versions)-maxVersions:]
	}
}

// Versions returns the history snapshots, oldest first. Specs inside are
// clones; callers may inspect them freely.
func (s *Store) Versions() []VersionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VersionSnapshot, len(s.versions))
	for i, v := range s.versions {
		out[i] = v
		out[i].Spec = v.Spec.Clone()
	}
	return out
}

// Rollback replaces the live spec wholesale with the snapshot at index
// (into the slice returned by Versions, oldest first) and emits a
// synthetic change event. An out-of-range index is rejected with
// ErrRollbackRange and no mutation occurs.
func (s *Store) Rollback(index int) (*ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.versions) {
		return nil, fmt.Errorf("%w: %d (history length %d)", ErrRollbackRange, index, len(s.versions))
	}

	restored := s.versions[index].Spec.Clone()
	restored.LastUpdated = time.Now()

	if err := s.persist(restored); err != nil {
		return nil, err
	}

	prev := s.spec
	s.pushVersion(VersionSnapshot{
		Timestamp: restored.LastUpdated,
		Author:    "rollback",
		Spec:      prev,
		Summary:   fmt.Sprintf("rollback to version %d", index),
	})
	s.spec = restored

	affected := featureIDUnion(prev, restored)
	ev := newEvent(EventRolledBack, "rollback", affected, restored.Clone(), map[string]any{
		"rolled_back_to": index,
	})
	s.dispatch(*ev)
	return ev, nil
}

// Subscribe registers a change handler and returns its handle.
func (s *Store) Subscribe(h Handler) Handle {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	handle := Handle(s.nextHandle.Add(1))
	s.subs[handle] = h
	return handle
}

// Unsubscribe removes a subscription. Returns false for an unknown handle.
func (s *Store) Unsubscribe(h Handle) bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subs[h]; !ok {
		return false
	}
	delete(s.subs, h)
	return true
}

// SetBroadcast registers the single external broadcast hook, invoked with
// the full event after every successful mutation. Delivery is best-effort;
// a hook failure never affects the mutation or the subscribers.
func (s *Store) SetBroadcast(fn func(ChangeEvent)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.broadcast = fn
}

// dispatch delivers an event synchronously to a defensive snapshot of the
// handler list, so concurrent (un)subscription during dispatch is safe.
// A panicking subscriber is logged and isolated; it never rolls back the
// mutation or starves sibling subscribers.
func (s *Store) dispatch(ev ChangeEvent) {
	s.subsMu.RLock()
	handlers := make([]Handler, 0, len(s.subs)+1)
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	hook := s.broadcast
	s.subsMu.RUnlock()

	for _, h := range handlers {
		s.safeCall(h, ev)
	}
	if hook != nil {
		s.safeCall(hook, ev)
	}
}

func (s *Store) safeCall(h Handler, ev ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked during dispatch",
				"event", string(ev.Type), "panic", r)
		}
	}()
	h(ev)
}

// summarize produces the version history line for a set of operations.
func summarize(ops []Operation) string {
	switch len(ops) {
	case 0:
		return "no-op update"
	case 1:
		return ops[0].Summary()
	default:
		return fmt.Sprintf("%s (+%d more)", ops[0].Summary(), len(ops)-1)
	}
}

// featureIDUnion returns the deduplicated feature IDs present in either spec.
func featureIDUnion(a, b *spec.Spec) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sp := range []*spec.Spec{a, b} {
		for _, id := range sp.FeatureIDs() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
