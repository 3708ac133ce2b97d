package supervisor

import (
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrAlreadyRunning is returned by AcquireRunDirLock when another
// supervisor instance already holds the lock for the same run
// directory.
var ErrAlreadyRunning = errors.New("another svlopp instance holds the run directory lock")

// RunDirLock guards a run directory against concurrent supervisors,
// adapted from cronmon/journal.FileLockJournaler's flock-or-fail
// pattern. Nothing in spec.md's runtime directory layout (§6) requires
// this file; it is a supplemented feature (see SPEC_FULL.md §5).
type RunDirLock struct {
	l *flock.Flock
}

// AcquireRunDirLock attempts to take an exclusive, non-blocking flock on
// <run_dir>/lock. It returns ErrAlreadyRunning if some other process
// already holds it.
func AcquireRunDirLock(path string) (*RunDirLock, error) {
	l := flock.New(path)

	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "acquire run directory lock")
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	return &RunDirLock{l: l}, nil
}

// Release drops the lock.
func (r *RunDirLock) Release() error {
	return r.l.Unlock()
}
