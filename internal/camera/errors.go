package camera

import (
	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/vision"
)

const (
	ErrConnectFailed = errors.ErrorCode("camera_connect_failed")
	ErrSetupFailed   = errors.ErrorCode("camera_setup_failed")

	ErrNameConflict         = errors.ErrNameConflict
	ErrUnrecognizedHardware = errors.ErrUnrecognizedHardware
)

// hardwareError wraps an SDK fault. Access faults on a stale handle surface as
// ErrDeviceUnavailable, everything else under code.
func hardwareError(code errors.ErrorCode, node string, err error) error {
	errFactory := errors.New()
	if vision.IsAccess(err) {
		return errFactory.Wrap(errors.ErrDeviceUnavailable, err).WithData(node)
	}

	return errFactory.Wrap(code, err).WithData(node)
}
