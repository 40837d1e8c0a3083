// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName lives inside DataDir and is held for the node process's
// entire lifetime, the same single-instance guarantee the teacher's
// chaindata directory relies on an OS-level advisory lock for.
const lockFileName = "LOCK"

// DataDirLock holds the advisory lock on a node's data directory.
type DataDirLock struct {
	fl *flock.Flock
}

// AcquireDataDir creates dataDir if missing and takes an exclusive,
// non-blocking lock on it. A second process pointed at the same
// dataDir fails fast here instead of corrupting shared state.
func AcquireDataDir(dataDir string) (*DataDirLock, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data_dir: %v", ErrFatal, err)
	}
	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: locking data_dir: %v", ErrFatal, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: data_dir %q is already in use by another process", ErrFatal, dataDir)
	}
	return &DataDirLock{fl: fl}, nil
}

// Release unlocks the data directory. It is safe to call on a nil
// receiver so callers can defer it unconditionally after a failed
// AcquireDataDir.
func (l *DataDirLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
