package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// SyncLock is a cross-process lock guarding album syncs against one database.
//
// It is also exclusive within the process, so callers sharing one instance exclude each other.
type SyncLock struct {
	path string
	lock *flock.Flock

	mu   sync.Mutex
	held bool
}

// NewSyncLock returns a lock backed by the file at path.
func NewSyncLock(path string) *SyncLock {
	return &SyncLock{path: path, lock: flock.New(path)}
}

// LockPath returns the lock file path for a database path.
//
// In-memory databases lock a file in the temp dir.
func LockPath(dbPath string) string {
	if dbPath == "" || dbPath == ":memory:" {
		return filepath.Join(os.TempDir(), "tagalbum.lock")
	}
	return dbPath + ".lock"
}

// Path returns the lock file path.
func (l *SyncLock) Path() string {
	return l.path
}

// TryLock acquires the lock without blocking.
// It returns [ErrLocked] when another process or another holder of this instance has it.
func (l *SyncLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// flock reports success again on an instance that already holds the file
	if l.held {
		return fmt.Errorf("%w: %s", ErrLocked, l.path)
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.path)
	}
	l.held = true
	return nil
}

// Unlock releases the lock.
func (l *SyncLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return nil
}
