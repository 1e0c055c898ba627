// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "nostalgia.lock"

// InstanceLock is an advisory lock on the data directory. The database and
// the preferences in it have exactly one writer while it is held.
type InstanceLock struct {
	fl *flock.Flock
}

// AcquireInstanceLock locks dataDir without waiting. It fails with
// ErrAlreadyRunning when another process holds the lock.
func AcquireInstanceLock(dataDir string) (*InstanceLock, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrAlreadyRunning, fl.Path())
	}
	return &InstanceLock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.fl.Path() }

// Release unlocks. The lock file itself stays in place.
func (l *InstanceLock) Release() error {
	return l.fl.Unlock()
}
