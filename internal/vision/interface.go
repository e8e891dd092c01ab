// Package vision is the boundary to the machine-vision SDK: device discovery,
// opaque device handles with named-register parameter access, and the typed
// faults the SDK raises.
package vision

import "time"

// DeviceClass selects a family of devices on the SDK transport layer.
type DeviceClass string

const (
	// PhysicalClass is the USB3 Vision camera class.
	PhysicalClass DeviceClass = "BaslerUsb"
	// VirtualClass is the SDK's software camera emulator.
	VirtualClass DeviceClass = "BaslerCamEmu"

	// EmulatorEnv is the environment toggle the SDK reads to decide how many
	// emulated devices to provision.
	EmulatorEnv = "PYLON_CAMEMU"

	// EmulatorSerialPattern is contained in the serial number of every
	// emulated device.
	EmulatorSerialPattern = "0815-0"
)

// DeviceInfo describes a device found on the transport layer.
type DeviceInfo struct {
	SerialNumber string
	ModelName    string
	FullName     string
	Class        DeviceClass
}

// Frame is the result of a single grab. Only the geometry is exposed.
type Frame struct {
	Width  int
	Height int
}

// Handle is one opened (or openable) device. Implementations are not safe for
// concurrent use.
type Handle interface {
	Info() DeviceInfo
	Open() error
	Close() error
	IsOpen() bool

	GetFloat(node string) (float64, error)
	SetFloat(node string, value float64) error
	GetInt(node string) (int64, error)
	SetInt(node string, value int64) error
	GetBool(node string) (bool, error)
	SetBool(node string, value bool) error
	GetEnum(node string) (string, error)
	SetEnum(node string, value string) error
	Execute(node string) error

	GrabOne(timeout time.Duration) (Frame, error)
	StartGrabbing() error
	StopGrabbing() error
}

// TransportLayer enumerates devices and creates handles for them.
type TransportLayer interface {
	EnumerateDevices(class DeviceClass) ([]DeviceInfo, error)
	CreateDevice(info DeviceInfo) (Handle, error)
}
