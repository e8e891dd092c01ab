package vision

import (
	"fmt"

	"codeberg.org/mutker/camsync/internal/errors"
)

const (
	ErrEnumerateFailed = errors.ErrorCode("vision_enumerate_failed")
	ErrCreateFailed    = errors.ErrorCode("vision_create_device_failed")
)

// OutOfRangeError is raised by the SDK when a register write is outside the
// bounds the device currently accepts. Message carries the SDK's text, which
// names the violated boundary.
type OutOfRangeError struct {
	Node    string
	Message string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Node, e.Message)
}

// AccessError is raised when a register cannot be accessed, typically because
// the handle is stale or the node is not available on this device.
type AccessError struct {
	Node   string
	Reason string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s : AccessException", e.Node, e.Reason)
}

// IsOutOfRange returns the OutOfRangeError in err's chain, if any.
func IsOutOfRange(err error) (*OutOfRangeError, bool) {
	var oor *OutOfRangeError
	if errors.As(err, &oor) {
		return oor, true
	}

	return nil, false
}

// IsAccess reports whether err's chain contains an AccessError.
func IsAccess(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
