package store

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

// TaskLock is a held advisory lock for one task. Release must be called
// exactly once, however the locked section ends.
type TaskLock struct {
	fl *flock.Flock
}

// Release drops the lock. Per the design note against remove-on-release
// (it races against concurrent acquirers), the lock file itself is
// never deleted — only unlocked.
func (l *TaskLock) Release() error {
	return l.fl.Unlock()
}

// Lock acquires the exclusive, non-blocking advisory lock on a task's
// directory. If another process (or goroutine) already holds it, it
// returns a LockContention error immediately rather than queuing the
// caller.
func (s *Store) Lock(taskID string) (*TaskLock, error) {
	path := filepath.Join(s.taskDir(taskID), ".state.lock")
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, alferrors.Fatalf("acquiring lock for task %s: %v", taskID, err)
	}
	if !locked {
		return nil, alferrors.LockContentionf(
			"task %s is locked by another invocation; retry shortly", taskID)
	}
	return &TaskLock{fl: fl}, nil
}
