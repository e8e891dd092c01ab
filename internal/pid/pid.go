// Package pid keeps a single-instance lock file. Cameras can only be opened
// by one process at a time.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/camsync/internal/errors"
)

const fileName = "camsync.pid"

// DefaultPath is the lock file location used when none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), fileName)
}

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning when the file names a live process.
func Write(path string) error {
	errFactory := errors.New()

	if path == "" {
		path = DefaultPath()
	}

	if raw, err := os.ReadFile(path); err == nil {
		if running(strings.TrimSpace(string(raw))) {
			return errFactory.WithData(errors.ErrAlreadyRunning, path)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the lock file at path. A missing file is not an error.
func Remove(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

// running reports whether raw is the PID of a live process other than us.
// A stale or garbled file does not block startup.
func running(raw string) bool {
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
