package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default lock timings.
const (
	DefaultLockTimeout  = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultStaleAfter   = time.Minute
)

// ErrLockTimeout is returned when a lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// LockOptions tunes lock acquisition. Zero values fall back to the defaults.
type LockOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// StaleAfter is the age after which a leftover marker from a crashed
	// process is removed. Negative disables stale detection.
	StaleAfter time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultLockTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	return o
}

// Lock is an advisory lock backed by an empty marker file.
type Lock struct {
	path string
}

// AcquireLock creates the marker at path exclusively, polling until
// opts.Timeout elapses. It returns ErrLockTimeout (wrapped) on contention.
func AcquireLock(path string, opts LockOptions) (*Lock, error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	// time.Now carries a monotonic reading, so wall-clock jumps do not
	// stretch or shrink the wait.
	deadline := time.Now().Add(opts.Timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		if opts.StaleAfter > 0 && breakStale(path, opts.StaleAfter) {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		time.Sleep(min(opts.PollInterval, remaining))
	}
}

// afterStaleCheck runs between the age check and the takeover of a stale
// marker.
var afterStaleCheck = func(path string) {}

// breakStale removes a marker older than maxAge and reports whether it did.
// The marker is renamed aside first and compared with the one that was
// judged stale, so a fresh marker another waiter created in between is put
// back instead of deleted.
func breakStale(path string, maxAge time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Vanished between our create attempt and the stat: retry right away.
		return os.IsNotExist(err)
	}
	if time.Since(info.ModTime()) < maxAge {
		return false
	}
	afterStaleCheck(path)

	aside := fmt.Sprintf("%s.stale-%d-%d", path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(path, aside); err != nil {
		return os.IsNotExist(err)
	}
	moved, err := os.Stat(aside)
	if err == nil && !(os.SameFile(info, moved) && moved.ModTime().Equal(info.ModTime())) {
		// Someone else's live marker. Restoring fails only if the path was
		// taken again, in which case that holder owns it.
		_ = os.Link(aside, path)
		_ = os.Remove(aside)
		return false
	}
	_ = os.Remove(aside)
	return true
}

// Path returns the marker file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the marker. Releasing twice is harmless.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}

// WithLock runs fn while holding the lock at path. The lock is released on
// every exit path, including a panic inside fn.
func WithLock(path string, opts LockOptions, fn func() error) (err error) {
	lock, err := AcquireLock(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn()
}
