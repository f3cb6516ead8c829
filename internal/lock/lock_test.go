package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireCreatesDirAndToken(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "web-prod")
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Fatalf("lock token missing: %v", err)
	}
}

func TestAcquireSecondHolderIsBusy(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "web-prod")
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire(first): %v", err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrBusy) {
		t.Fatalf("Acquire(second) error = %v, want ErrBusy", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Lock must be free again after release.
	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire(after release): %v", err)
	}
	_ = second.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ws")
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release(again): %v", err)
	}

	var nilLock *FileLock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("Release(nil): %v", err)
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ws")
	wantErr := errors.New("boom")
	if err := WithLock(dir, func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("WithLock error = %v, want %v", err, wantErr)
	}

	// The lock must have been released despite fn failing.
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after failed WithLock: %v", err)
	}
	_ = l.Release()
}
