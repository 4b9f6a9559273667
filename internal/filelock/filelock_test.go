package filelock

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.lock")
	fl := New(path)
	if err := fl.Acquire(time.Second); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := fl.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// Reacquirable after release.
	if err := fl.Acquire(time.Second); err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	_ = fl.Release()
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	t.Parallel()

	fl := New(filepath.Join(t.TempDir(), "doc.lock"))
	if err := fl.Release(); err != nil {
		t.Errorf("Release on unheld lock: %v", err)
	}
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.lock")
	holder := New(path)
	if err := holder.Acquire(time.Second); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	// A second descriptor in the same process still contends under flock
	// because the locks are per open file description.
	contender := New(path)
	start := time.Now()
	err := contender.Acquire(100 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if time.Since(start) < 100*time.Millisecond {
		t.Error("Acquire returned before the timeout bound elapsed")
	}
}
