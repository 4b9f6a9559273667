// Package filelock provides cross-process mutual exclusion over the spec
// document using flock(2). The advisory lock guards the on-disk document
// against concurrent writers from independent process instances.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrTimeout is returned when the lock cannot be acquired within the
// configured bound. No partial acquisition remains afterwards.
var ErrTimeout = errors.New("file lock acquisition timed out")

// retryInterval is the poll interval between non-blocking acquisition attempts.
const retryInterval = 25 * time.Millisecond

// FileLock wraps a lock file guarded by flock(2).
type FileLock struct {
	path string
	file *os.File
}

// New creates a FileLock at the given path. The lock file is created on
// first acquisition. Call Acquire/Release to lock and unlock.
func New(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire obtains the exclusive lock, polling until the timeout elapses.
// Returns ErrTimeout if the lock is still held elsewhere at the deadline;
// every failure path leaves no file handle open.
func (fl *FileLock) Acquire(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := fl.tryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, fl.path, timeout)
		}
		time.Sleep(retryInterval)
	}
}

// tryLock attempts a single non-blocking acquisition.
func (fl *FileLock) tryLock() (bool, error) {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	fl.file = f
	return true, nil
}

// Release unlocks and closes the lock file. Releasing an unheld lock is a no-op.
func (fl *FileLock) Release() error {
	if fl.file == nil {
		return nil
	}
	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("funlock: %w", err)
	}
	err := fl.file.Close()
	fl.file = nil
	return err
}
