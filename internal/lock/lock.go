package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// LockFileName is the advisory lock token inside a workspace directory.
const LockFileName = ".lck"

// ErrBusy is returned when the workspace lock is already held, either by
// another process or by a concurrent mutation in this one.
var ErrBusy = errors.New("workspace is busy")

// FileLock is a per-workspace exclusive lock implemented via flock(2) on a
// zero-length token file. Keep the lock alive by keeping the file
// descriptor open. The file lock, not any in-process primitive, is the
// authority serializing mutations across processes.
type FileLock struct {
	path string
	f    *os.File
}

// Acquire takes the exclusive non-blocking lock for dir, creating dir and
// the token file as needed. It returns ErrBusy when the lock is held
// elsewhere. The returned handle must be released.
func Acquire(dir string) (*FileLock, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return &FileLock{path: path, f: f}, nil
}

// WithLock runs fn while holding dir's lock and guarantees release on every
// exit path, including a panic inside fn.
func WithLock(dir string, fn func() error) error {
	l, err := Acquire(dir)
	if err != nil {
		return err
	}
	defer func() { _ = l.Release() }()
	return fn()
}

func (l *FileLock) Path() string { return l.path }

// Release unlocks and closes the token file. Releasing an already released
// (or nil) lock is a no-op.
func (l *FileLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
