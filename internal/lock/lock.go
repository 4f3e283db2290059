// Package lock guarantees that only one install attempt runs per device.
package lock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"firstboot/internal/util"
)

// ErrHeld is returned by Acquire when another process holds the lock.
var ErrHeld = errors.New("another install is already running")

// Lock is a cross-process advisory lock on a file.
type Lock struct {
	path string
	fl   *flock.Flock
}

// New creates a Lock for the given path. The file is created on first use.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock without waiting. It returns ErrHeld if the lock is
// owned by someone else.
func (l *Lock) Acquire(_ context.Context) error {
	ok, err := l.commit(func(fl *flock.Flock) (bool, error) {
		return fl.TryLock()
	})
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.path, ErrHeld)
	}
	return nil
}

// Release unlocks. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}
	return nil
}

func (l *Lock) commit(acquire func(*flock.Flock) (bool, error)) (bool, error) {
	if l.fl != nil {
		return false, errors.New("lock already held by this instance")
	}
	if err := util.EnsureDir(filepath.Dir(l.path)); err != nil {
		return false, err
	}
	fl := flock.New(l.path)
	ok, err := acquire(fl)
	if err != nil || !ok {
		return false, err
	}
	l.fl = fl
	return true, nil
}
