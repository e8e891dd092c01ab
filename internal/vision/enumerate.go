package vision

import (
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/camsync/internal/errors"
)

// Enumerator lists physical and emulated devices on a transport layer.
type Enumerator struct {
	transport     TransportLayer
	physicalClass DeviceClass
	virtualClass  DeviceClass
}

// NewEnumerator returns an Enumerator using the default device classes.
func NewEnumerator(tl TransportLayer) *Enumerator {
	return &Enumerator{
		transport:     tl,
		physicalClass: PhysicalClass,
		virtualClass:  VirtualClass,
	}
}

// Enumerate returns the physical devices followed by virtualCount emulated
// ones, each list in discovery order. Physical devices are always listed first
// so positions stay stable across calls.
func (e *Enumerator) Enumerate(virtualCount int) (physical, virtual []DeviceInfo, err error) {
	errFactory := errors.New()

	physical, err = e.transport.EnumerateDevices(e.physicalClass)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrEnumerateFailed, err)
	}

	if virtualCount > 0 {
		if err := os.Setenv(EmulatorEnv, strconv.Itoa(virtualCount)); err != nil {
			return nil, nil, errFactory.Wrap(ErrEnumerateFailed, err)
		}

		virtual, err = e.transport.EnumerateDevices(e.virtualClass)
		if err != nil {
			return nil, nil, errFactory.Wrap(ErrEnumerateFailed, err)
		}
	}

	return physical, virtual, nil
}

// All returns physical and virtual devices as one ordered list.
func (e *Enumerator) All(virtualCount int) ([]DeviceInfo, error) {
	physical, virtual, err := e.Enumerate(virtualCount)
	if err != nil {
		return nil, err
	}

	return append(physical, virtual...), nil
}

// Open creates a handle for info. The handle is not opened yet.
func (e *Enumerator) Open(info DeviceInfo) (Handle, error) {
	h, err := e.transport.CreateDevice(info)
	if err != nil {
		return nil, errors.New().Wrap(ErrCreateFailed, err)
	}

	return h, nil
}

// IsVirtual reports whether the serial number belongs to an emulated device.
func IsVirtual(serial string) bool {
	return strings.Contains(serial, EmulatorSerialPattern)
}

// VirtualIndex derives an emulated device's index from the trailing digit of
// its serial number.
func VirtualIndex(serial string) (int, bool) {
	if !IsVirtual(serial) || serial == "" {
		return 0, false
	}

	idx, err := strconv.Atoi(serial[len(serial)-1:])
	if err != nil {
		return 0, false
	}

	return idx, true
}
