//go:build linux

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// rigLock is an advisory flock on the lock file. Two invocations
// fighting over the same H-bridge pins is how drivers burn out, so a
// second instance fails fast instead of queueing.
type rigLock struct {
	f *os.File
}

func acquireLock(path string) (*rigLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("rig already in use (flock %s: %v)", path, err)
	}
	return &rigLock{f: f}, nil
}

func (l *rigLock) release() {
	if l == nil || l.f == nil {
		return
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
	l.f = nil
}
