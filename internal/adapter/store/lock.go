package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"askdocs/internal/errors"
)

// WriteLock is a cross-process lock held by commands that modify the store.
// The lock file is <dir>/.write.lock.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func NewWriteLock(dir string) *WriteLock {
	path := filepath.Join(dir, ".write.lock")
	return &WriteLock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. It fails with ERR_502_STORE_LOCKED
// when another process holds it.
func (l *WriteLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return errors.New(errors.ErrCodeStoreLocked,
			fmt.Sprintf("store is being modified by another process (%s)", l.path), nil)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *WriteLock) Path() string {
	return l.path
}
