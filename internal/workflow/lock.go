package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"reelflow/internal/services"
)

// RunLock serializes workflow runs against one state directory. Exactly one
// active wizard run may hold it.
type RunLock struct {
	fl *flock.Flock
}

// AcquireRunLock takes the per-state-dir lock without blocking. A held lock
// surfaces as a configuration error naming the lock file.
func AcquireRunLock(stateDir string) (*RunLock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}
	path := filepath.Join(stateDir, "reelflow.lock")
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "", "acquire run lock",
			fmt.Sprintf("another reelflow run holds %s", path), nil)
	}
	return &RunLock{fl: fl}, nil
}

// Release frees the lock. Safe to call on a nil lock.
func (l *RunLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
