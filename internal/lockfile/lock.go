// Package lockfile serializes vault commit sequences across processes
// using an advisory file lock. Two concurrent invocations may still race
// on run directory creation; the lock only protects the repository's
// staged state from interleaved add/commit pairs.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrLockBusy is returned by Acquire when another process holds the lock.
var ErrLockBusy = errors.New("vault lock already held by another process")

// Lock is a held advisory lock.
type Lock struct {
	path string
	f    *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock at path without blocking. Returns ErrLockBusy
// when the lock is already held.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600) // #nosec G304 - lock path derived from vault root
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		f.Close()
		return nil, err
	}
	return &Lock{path: path, f: f}, nil
}

// AcquireWait takes the lock, retrying with exponential backoff until it
// succeeds, maxWait elapses, or ctx is cancelled.
func AcquireWait(ctx context.Context, path string, maxWait time.Duration) (*Lock, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 1 * time.Second
	bo.MaxElapsedTime = maxWait

	var lock *Lock
	err := backoff.Retry(func() error {
		l, err := Acquire(path)
		if errors.Is(err, ErrLockBusy) {
			return err // retryable
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		lock = l
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// Release drops the lock. The lock file itself is left in place; removing
// it would race with a waiter that has already opened it.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := flockUnlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
