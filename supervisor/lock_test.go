package supervisor

import (
	"path/filepath"
	"testing"
)

func TestRunDirLockRefusesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	first, err := AcquireRunDirLock(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer first.Release()

	if _, err := AcquireRunDirLock(path); err != ErrAlreadyRunning {
		t.Fatalf("got %v, want ErrAlreadyRunning", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("unexpected error releasing: %v", err)
	}

	second, err := AcquireRunDirLock(path)
	if err != nil {
		t.Fatalf("expected the lock to be acquirable once released, got: %v", err)
	}
	second.Release()
}
