package trigger

import "codeberg.org/mutker/camsync/internal/errors"

const (
	ErrMissingConfig    = errors.ErrMissingConfig
	ErrConnectionFailed = errors.ErrConnectionFailed
	ErrTimeout          = errors.ErrTimeout
	ErrInvalidState     = errors.ErrInvalidState
	ErrCommandFailed    = errors.ErrHardwareCommandFailure

	ErrPingFailed = errors.ErrorCode("trigger_ping_failed")
)
