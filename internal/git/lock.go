package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// LockFileName is created in the git directory while a cascade runs
const LockFileName = "cascade.lock"

// WorkTreeLock guards the working tree against concurrent cascades
type WorkTreeLock struct {
	path string
	held bool
}

// NewWorkTreeLock creates a lock file handle inside gitDir
func NewWorkTreeLock(gitDir string) *WorkTreeLock {
	return &WorkTreeLock{path: filepath.Join(gitDir, LockFileName)}
}

// Path returns the lock file path
func (l *WorkTreeLock) Path() string {
	return l.path
}

// Lock creates the lock file. It fails with ErrWorkTreeBusy if it exists
// and the process that wrote it is still running; a lock left by a dead
// process is replaced.
func (l *WorkTreeLock) Lock() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if errors.Is(err, os.ErrExist) && l.stale() {
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale lock file: %w", rmErr)
		}
		f, err = os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	}
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w (remove %s if no cascade is running)", cascadeerrors.ErrWorkTreeBusy, l.path)
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if err := f.Close(); err != nil {
		_ = os.Remove(l.path)
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	l.held = true
	return nil
}

// stale reports whether the lock file names a process that no longer runs.
// An unreadable or empty file counts as held.
func (l *WorkTreeLock) stale() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	return !processAlive(pid)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	if err == nil || errors.Is(err, syscall.EPERM) {
		return true
	}
	// Platforms without signal 0 report the process as running.
	return !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH)
}

// Unlock removes the lock file if this handle created it
func (l *WorkTreeLock) Unlock() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
