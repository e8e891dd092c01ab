// Package camera drives a single machine-vision camera: connection and
// baseline configuration, acquisition parameters with range clamping, and
// name negotiation through a shared Registry.
package camera

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/vision"
)

const probeTimeout = 100 * time.Millisecond

// Device is one camera. Parameters set while disconnected are staged and
// applied on Connect.
type Device struct {
	mu sync.Mutex

	registry     *Registry
	enum         *vision.Enumerator
	virtualCount int
	log          logger.Logger

	handle    vision.Handle
	connected bool
	grabbing  bool
	virtual   bool
	serial    string
	idx       int
	name      string

	probe         *vision.Frame
	width, height int

	triggered   bool
	framerate   float64
	exposure    float64
	gain        float64
	gamma       float64
	blackLevel  float64
	binning     int
	binningMode BinningMode
}

// Option configures a Device.
type Option func(*Device)

// WithEnumerator lets Connect pick a device by itself. virtualCount emulated
// cameras are listed after the physical ones.
func WithEnumerator(enum *vision.Enumerator, virtualCount int) Option {
	return func(d *Device) {
		d.enum = enum
		d.virtualCount = virtualCount
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(d *Device) {
		d.log = log.WithComponent("camera")
	}
}

// New returns a disconnected Device staged with params.
func New(registry *Registry, params Params, opts ...Option) (*Device, error) {
	if !validBinning(params.Binning) {
		return nil, invalidBinning(params.Binning)
	}

	name := params.Name
	if name == "" {
		name = DefaultName
	}

	d := &Device{
		registry:    registry,
		log:         logger.Nop(),
		idx:         -1,
		name:        name,
		triggered:   params.Triggered,
		framerate:   params.Framerate,
		exposure:    params.Exposure,
		gain:        params.Gain,
		gamma:       params.Gamma,
		blackLevel:  params.BlackLevel,
		binning:     params.Binning,
		binningMode: ParseBinningMode(params.BinningMode),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Connect opens handle, or when handle is nil the next unclaimed enumerated
// device, and brings it to the baseline configuration with the staged
// parameters. On failure the handle is closed again and the staged name is
// kept.
//
// Connects sharing a Registry are serialized, so each one takes the index and
// enumerator position the previous one left.
func (d *Device) Connect(handle vision.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	errFactory := errors.New()

	if d.connected {
		return errFactory.WithData(errors.ErrInvalidState, fmt.Sprintf("camera %s is already connected", d.name))
	}

	unlock := d.registry.lockConnect()
	defer unlock()

	available := d.registry.Len()

	if handle == nil {
		var err error
		if handle, err = d.pick(available); err != nil {
			return err
		}
	}

	if err := handle.Open(); err != nil {
		return errFactory.Wrap(ErrConnectFailed, err).WithData(handle.Info().SerialNumber)
	}
	d.handle = handle

	if err := d.setup(available); err != nil {
		if cerr := handle.Close(); cerr != nil {
			d.log.Warn().Err(cerr).Str("serial", d.serial).Msg("Failed to close camera after setup error")
		}
		d.reset()

		return err
	}

	d.connected = true
	d.log.Info().
		Str("serial", d.serial).
		Str("name", d.name).
		Int("index", d.idx).
		Bool("virtual", d.virtual).
		Msg("Camera connected")

	return nil
}

func (d *Device) pick(available int) (vision.Handle, error) {
	errFactory := errors.New()

	if d.enum == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidState, "no handle given and no enumerator configured")
	}

	devices, err := d.enum.All(d.virtualCount)
	if err != nil {
		return nil, err
	}

	if available >= len(devices) {
		return nil, errFactory.WithData(errors.ErrResourceExhausted,
			fmt.Sprintf("requested device index %d but only %d devices are available", available, len(devices)))
	}

	return d.enum.Open(devices[available])
}

// setup runs the connect sequence on the freshly opened handle. Callers hold d.mu.
func (d *Device) setup(available int) error {
	d.serial = d.handle.Info().SerialNumber
	d.idx = available

	if vi, ok := vision.VirtualIndex(d.serial); ok {
		d.virtual = true
		d.idx = max(available, vi)
	}

	if err := d.loadUserSet("Default"); err != nil {
		return err
	}

	if err := d.writeEnum(vision.NodeAcquisitionMode, "Continuous"); err != nil {
		return err
	}
	if err := d.writeEnum(vision.NodeExposureMode, "Timed"); err != nil {
		return err
	}

	if !d.virtual {
		if err := d.writeEnum(vision.NodeThroughputLimitMode, "On"); err != nil {
			return err
		}
		if err := d.writeInt(vision.NodeThroughputLimit, throughputLimit); err != nil {
			return err
		}
	}

	frame, err := d.handle.GrabOne(probeTimeout)
	if err != nil {
		return hardwareError(ErrSetupFailed, "GrabOne", err)
	}
	d.probe = &frame

	if !d.virtual {
		if err := d.setupTriggerLine(); err != nil {
			return err
		}
	}

	if err := d.applyParams(); err != nil {
		return err
	}

	name, err := d.registry.Register(d.name, d.idx)
	if err != nil {
		return err
	}
	d.name = name

	return nil
}

func (d *Device) setupTriggerLine() error {
	if err := d.writeEnum(vision.NodeExposureAuto, "Off"); err != nil {
		return err
	}
	if err := d.writeEnum(vision.NodeGainAuto, "Off"); err != nil {
		return err
	}
	if err := d.writeFloat(vision.NodeTriggerDelay, 0); err != nil {
		return err
	}
	if err := d.writeFloat(vision.NodeLineDebouncerTime, 5); err != nil {
		return err
	}
	if err := d.writeEnum(vision.NodeTriggerSelector, "FrameStart"); err != nil {
		return err
	}

	if d.triggered {
		steps := []struct{ node, value string }{
			{vision.NodeLineSelector, triggerLine},
			{vision.NodeLineMode, "Input"},
			{vision.NodeTriggerMode, "On"},
			{vision.NodeTriggerSource, triggerLine},
			{vision.NodeTriggerActivation, "RisingEdge"},
		}
		for _, s := range steps {
			if err := d.writeEnum(s.node, s.value); err != nil {
				return err
			}
		}

		return d.writeBool(vision.NodeFrameRateEnable, false)
	}

	if err := d.writeEnum(vision.NodeTriggerMode, "Off"); err != nil {
		return err
	}

	return d.writeBool(vision.NodeFrameRateEnable, true)
}

func (d *Device) applyParams() error {
	if err := d.setBinning(d.binning); err != nil {
		return err
	}
	if err := d.setBinningMode(d.binningMode); err != nil {
		return err
	}
	if err := d.setFramerate(d.framerate); err != nil {
		return err
	}
	if err := d.setExposure(d.exposure); err != nil {
		return err
	}
	if err := d.setBlackLevel(d.blackLevel); err != nil {
		return err
	}
	if err := d.setGain(d.gain); err != nil {
		return err
	}

	return d.setGamma(d.gamma)
}

// Disconnect stops acquisition, closes the handle and releases the name.
// It is a no-op on a disconnected Device.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	if d.grabbing {
		if err := d.handle.StopGrabbing(); err != nil {
			d.log.Warn().Err(err).Str("name", d.name).Msg("Failed to stop grabbing before disconnect")
		}
	}

	err := d.handle.Close()
	d.registry.Release(d.name)
	d.log.Info().Str("serial", d.serial).Str("name", d.name).Msg("Camera disconnected")
	d.reset()
	d.name = DefaultName

	if err != nil {
		return hardwareError(errors.ErrShutdownFailed, "Close", err)
	}

	return nil
}

// Close is Disconnect, so a Device can be deferred like any io.Closer.
func (d *Device) Close() error {
	return d.Disconnect()
}

// reset clears connection and identity state. The name is left alone. Callers
// hold d.mu.
func (d *Device) reset() {
	d.handle = nil
	d.connected = false
	d.grabbing = false
	d.virtual = false
	d.serial = ""
	d.idx = -1
	d.probe = nil
	d.width = 0
	d.height = 0
}

// StartGrabbing starts continuous acquisition. On a disconnected Device it
// only logs a warning.
func (d *Device) StartGrabbing() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		d.log.Warn().Msg("StartGrabbing called on a disconnected camera")
		return nil
	}
	if d.grabbing {
		return nil
	}

	if err := d.handle.StartGrabbing(); err != nil {
		return hardwareError(errors.ErrHardwareCommandFailure, "StartGrabbing", err)
	}
	d.grabbing = true

	return nil
}

// StopGrabbing stops acquisition. On a disconnected Device it only logs a
// warning.
func (d *Device) StopGrabbing() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		d.log.Warn().Msg("StopGrabbing called on a disconnected camera")
		return nil
	}
	if !d.grabbing {
		return nil
	}

	if err := d.handle.StopGrabbing(); err != nil {
		return hardwareError(errors.ErrHardwareCommandFailure, "StopGrabbing", err)
	}
	d.grabbing = false

	return nil
}

// LoadUserSet selects and loads a stored user set.
func (d *Device) LoadUserSet(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return errors.New().WithMessage(errors.ErrInvalidState, "camera is not connected")
	}

	return d.loadUserSet(name)
}

func (d *Device) loadUserSet(name string) error {
	if err := d.writeEnum(vision.NodeUserSetSelector, name); err != nil {
		return err
	}
	if err := d.handle.Execute(vision.NodeUserSetLoad); err != nil {
		return hardwareError(errors.ErrHardwareCommandFailure, vision.NodeUserSetLoad, err)
	}

	return nil
}

func (d *Device) writeEnum(node, value string) error {
	if err := d.handle.SetEnum(node, value); err != nil {
		return hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	return nil
}

func (d *Device) writeFloat(node string, value float64) error {
	if err := d.handle.SetFloat(node, value); err != nil {
		return hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	return nil
}

func (d *Device) writeInt(node string, value int64) error {
	if err := d.handle.SetInt(node, value); err != nil {
		return hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	return nil
}

func (d *Device) writeBool(node string, value bool) error {
	if err := d.handle.SetBool(node, value); err != nil {
		return hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	return nil
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return "Camera disconnected"
	}

	kind := "Camera"
	if d.virtual {
		kind = "Virtual Camera"
	}

	return fmt.Sprintf("%s [S/N %s] (id=%d, name=%s)", kind, d.serial, d.idx, d.name)
}
