// Package sysutil adjusts process resource limits.
package sysutil

import (
	"codeberg.org/mutker/camsync/internal/errors"
	"golang.org/x/sys/unix"
)

// DefaultFileLimit is the soft RLIMIT_NOFILE the daemon asks for. The stock
// 1024 runs out with more than four cameras open.
const DefaultFileLimit = 8192

// RaiseFileLimit lifts the soft RLIMIT_NOFILE to want, capped at the hard
// limit. It never lowers the limit and returns the resulting soft limit.
func RaiseFileLimit(want uint64) (uint64, error) {
	errFactory := errors.New()

	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	target := min(want, rl.Max)
	if rl.Cur >= target {
		return rl.Cur, nil
	}

	rl.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return rl.Cur, nil
}
