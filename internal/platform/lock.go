package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
	"github.com/stagehand-labs/stagehand/internal/failure"
)

// Lock is a held per-application install lock.
type Lock struct {
	file lockfile.Lockfile
	path string
}

// AcquireLock takes the install lock named key inside dir without waiting.
// A lock held by another live process is reported as ResourceBusy.
func AcquireLock(dir, key string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", dir, err)
	}
	abs, err := filepath.Abs(filepath.Join(dir, key+".lock"))
	if err != nil {
		return nil, fmt.Errorf("resolving lock path: %w", err)
	}

	lf, err := lockfile.New(abs)
	if err != nil {
		return nil, fmt.Errorf("creating lock %s: %w", abs, err)
	}
	if err := lf.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			return nil, failure.New(failure.ErrResourceBusy, "another installer run holds %s", abs)
		}
		return nil, fmt.Errorf("locking %s: %w", abs, err)
	}
	return &Lock{file: lf, path: abs}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.file.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}
