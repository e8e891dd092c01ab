// Package emulator provides an in-process vision transport layer. It serves
// the SDK's emulated camera class (sized by the PYLON_CAMEMU toggle) and any
// devices registered explicitly, which stand in for physical cameras.
package emulator

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"codeberg.org/mutker/camsync/internal/vision"
)

// maxEmulated mirrors the SDK's upper bound on emulated devices.
const maxEmulated = 256

// TransportLayer implements vision.TransportLayer.
type TransportLayer struct {
	mu       sync.Mutex
	attached []*Device
	emulated map[string]*Device
	opts     []Option
}

var _ vision.TransportLayer = (*TransportLayer)(nil)

// NewTransportLayer returns a transport with no attached devices. opts apply to
// every emulated device it provisions.
func NewTransportLayer(opts ...Option) *TransportLayer {
	return &TransportLayer{
		emulated: make(map[string]*Device),
		opts:     opts,
	}
}

// Attach registers a device; it is reported under its own class in attach order.
func (t *TransportLayer) Attach(d *Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attached = append(t.attached, d)
}

// Emulated returns the emulated device with serial, if provisioned.
func (t *TransportLayer) Emulated(serial string) (*Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.emulated[serial]

	return d, ok
}

func (t *TransportLayer) EnumerateDevices(class vision.DeviceClass) ([]vision.DeviceInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var infos []vision.DeviceInfo
	for _, d := range t.attached {
		if d.info.Class == class {
			infos = append(infos, d.info)
		}
	}

	if class != vision.VirtualClass {
		return infos, nil
	}

	count, err := emulatedCount()
	if err != nil {
		return nil, err
	}

	for i := 0; i < count; i++ {
		serial := fmt.Sprintf("0815-%04d", i)
		d, ok := t.emulated[serial]
		if !ok {
			d = NewDevice(serial, vision.VirtualClass, t.opts...)
			t.emulated[serial] = d
		}
		infos = append(infos, d.info)
	}

	return infos, nil
}

func (t *TransportLayer) CreateDevice(info vision.DeviceInfo) (vision.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range t.attached {
		if d.info.SerialNumber == info.SerialNumber {
			return d, nil
		}
	}

	if d, ok := t.emulated[info.SerialNumber]; ok {
		return d, nil
	}

	return nil, fmt.Errorf("no device with serial %q on this transport layer", info.SerialNumber)
}

func emulatedCount() (int, error) {
	raw := os.Getenv(vision.EmulatorEnv)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", vision.EmulatorEnv, raw, err)
	}

	return min(max(n, 0), maxEmulated), nil
}
