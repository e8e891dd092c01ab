package camera

import (
	"math"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/vision"
)

// The unexported setters write to hardware whenever a handle is attached,
// which includes the connect sequence. Callers hold d.mu.

func (d *Device) Serial() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serial
}

// Index is the array position, or -1 while disconnected.
func (d *Device) Index() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idx
}

func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) Grabbing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabbing
}

func (d *Device) Virtual() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.virtual
}

func (d *Device) Triggered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggered
}

// SetName renames the camera. While connected the name is negotiated with the
// Registry and may come back suffixed with the index.
func (d *Device) SetName(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == d.name || d.name == suffixed(name, d.idx) {
		return nil
	}

	if !d.connected {
		d.name = name
		return nil
	}

	assigned, err := d.registry.Rename(d.name, name, d.idx)
	if err != nil {
		return err
	}
	d.name = assigned

	return nil
}

func (d *Device) Binning() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.binning
}

// SetBinning sets symmetric binning (1 to 4) and recomputes the ROI. Emulated
// cameras only update the cached value.
func (d *Device) SetBinning(v int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBinning(v)
}

func (d *Device) setBinning(v int) error {
	if !validBinning(v) {
		return invalidBinning(v)
	}

	if d.handle != nil {
		if !d.virtual {
			if err := d.writeInt(vision.NodeBinningVertical, int64(v)); err != nil {
				return err
			}
			if err := d.writeInt(vision.NodeBinningHorizontal, int64(v)); err != nil {
				return err
			}
		}

		if err := d.updateROI(v); err != nil {
			return err
		}
	}
	d.binning = v

	return nil
}

func (d *Device) updateROI(binning int) error {
	if d.virtual {
		if d.probe != nil {
			d.width, d.height = d.probe.Width, d.probe.Height
		}
		return nil
	}

	wmax, err := d.handle.GetInt(vision.NodeWidthMax)
	if err != nil {
		return hardwareError(errors.ErrHardwareReadFailed, vision.NodeWidthMax, err)
	}
	hmax, err := d.handle.GetInt(vision.NodeHeightMax)
	if err != nil {
		return hardwareError(errors.ErrHardwareReadFailed, vision.NodeHeightMax, err)
	}

	w := wmax - int64(roiMarginX/binning)
	h := hmax - int64(roiMarginY/binning)

	if err := d.writeInt(vision.NodeWidth, w); err != nil {
		return err
	}
	if err := d.writeInt(vision.NodeHeight, h); err != nil {
		return err
	}
	if err := d.writeBool(vision.NodeCenterX, true); err != nil {
		return err
	}
	if err := d.writeBool(vision.NodeCenterY, true); err != nil {
		return err
	}

	d.width, d.height = int(w), int(h)

	return nil
}

func (d *Device) BinningMode() BinningMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.binningMode
}

// SetBinningMode accepts free text, see ParseBinningMode.
func (d *Device) SetBinningMode(mode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBinningMode(ParseBinningMode(mode))
}

func (d *Device) setBinningMode(mode BinningMode) error {
	if d.handle != nil && !d.virtual {
		if err := d.writeEnum(vision.NodeBinningVerticalMode, string(mode)); err != nil {
			return err
		}
		if err := d.writeEnum(vision.NodeBinningHorizontalMode, string(mode)); err != nil {
			return err
		}
	}
	d.binningMode = mode

	return nil
}

func (d *Device) Exposure() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exposure
}

// SetExposure sets the exposure time in microseconds. Out-of-range values are
// clamped to the nearest accepted two-decimal value.
func (d *Device) SetExposure(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setExposure(v)
}

func (d *Device) setExposure(v float64) error {
	if d.handle == nil {
		d.exposure = v
		return nil
	}

	if !d.virtual {
		written, err := writeRanged(vision.NodeExposureTime, func(x float64) error {
			return d.handle.SetFloat(vision.NodeExposureTime, x)
		}, v)
		if err != nil {
			return err
		}
		d.exposure = written

		return nil
	}

	// Emulated cameras take whole microseconds on both the Abs and Raw registers.
	written, err := writeRanged(vision.NodeExposureTimeAbs, func(x float64) error {
		x = math.Trunc(x)
		if err := d.handle.SetFloat(vision.NodeExposureTimeAbs, x); err != nil {
			return err
		}
		return d.handle.SetInt(vision.NodeExposureTimeRaw, int64(x))
	}, v)
	if err != nil {
		return err
	}
	d.exposure = math.Trunc(written)

	return nil
}

func (d *Device) Gain() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

// SetGain sets the analog gain, clamping out-of-range values.
func (d *Device) SetGain(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setGain(v)
}

func (d *Device) setGain(v float64) error {
	return d.setRanged(vision.NodeGain, v, &d.gain)
}

func (d *Device) Gamma() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gamma
}

// SetGamma sets gamma, clamping out-of-range values.
func (d *Device) SetGamma(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setGamma(v)
}

func (d *Device) setGamma(v float64) error {
	return d.setRanged(vision.NodeGamma, v, &d.gamma)
}

func (d *Device) BlackLevel() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blackLevel
}

// SetBlackLevel sets the black level, clamping out-of-range values.
func (d *Device) SetBlackLevel(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setBlackLevel(v)
}

func (d *Device) setBlackLevel(v float64) error {
	return d.setRanged(vision.NodeBlackLevel, v, &d.blackLevel)
}

func (d *Device) setRanged(node string, v float64, cache *float64) error {
	if d.handle == nil {
		*cache = v
		return nil
	}

	written, err := writeRanged(node, func(x float64) error {
		return d.handle.SetFloat(node, x)
	}, v)
	if err != nil {
		return err
	}
	*cache = written

	return nil
}

func (d *Device) Framerate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.framerate
}

// SetFramerate sets the free-running frame rate, capped at MaxFramerate and
// rounded to two decimals. In triggered mode the external pulse sets the rate,
// so the value is only recorded.
func (d *Device) SetFramerate(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setFramerate(v)
}

func (d *Device) setFramerate(v float64) error {
	if d.triggered || d.handle == nil {
		d.framerate = v
		return nil
	}

	limit, err := d.maxFramerate()
	if err != nil {
		return err
	}

	fps := round2(math.Min(v, limit))

	node := vision.NodeFrameRate
	if d.virtual {
		node = vision.NodeFrameRateAbs
	}
	if err := d.writeFloat(node, fps); err != nil {
		return err
	}
	d.framerate = fps

	return nil
}

// MaxFramerate reports the highest free-running rate the current
// configuration allows. The rate-limit enable is restored afterwards.
func (d *Device) MaxFramerate() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return 0, errors.New().WithMessage(errors.ErrInvalidState, "camera is not connected")
	}

	return d.maxFramerate()
}

func (d *Device) maxFramerate() (fps float64, err error) {
	if d.virtual {
		return virtualMaxFramerate, nil
	}

	prev, err := d.handle.GetBool(vision.NodeFrameRateEnable)
	if err != nil {
		return 0, hardwareError(errors.ErrHardwareReadFailed, vision.NodeFrameRateEnable, err)
	}

	if err := d.writeBool(vision.NodeFrameRateEnable, false); err != nil {
		return 0, err
	}
	defer func() {
		if rerr := d.writeBool(vision.NodeFrameRateEnable, prev); rerr != nil && err == nil {
			err = rerr
		}
	}()

	fps, err = d.handle.GetFloat(vision.NodeResultingFrameRate)
	if err != nil {
		return 0, hardwareError(errors.ErrHardwareReadFailed, vision.NodeResultingFrameRate, err)
	}

	return fps, nil
}

// Width and Height are the current ROI, zero while disconnected.
func (d *Device) Width() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width
}

func (d *Device) Height() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height
}

// Shape returns the geometry of the frame grabbed while connecting.
func (d *Device) Shape() (vision.Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.probe == nil {
		return vision.Frame{}, false
	}

	return *d.probe, true
}

// Temperature returns the sensor temperature in degrees Celsius. ok is false
// when it is unknown: emulated cameras, read faults and the sentinel readings
// 0 and 421.
func (d *Device) Temperature() (celsius float64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || d.virtual {
		return 0, false
	}

	t, err := d.handle.GetFloat(vision.NodeDeviceTemperature)
	if err != nil {
		d.log.Debug().Err(err).Str("name", d.name).Msg("Temperature unavailable")
		return 0, false
	}

	if t == 0 || t == 421 {
		return 0, false
	}

	return t, true
}

// TemperatureState is the device's own temperature classification, "Ok" for
// emulated cameras and "Unknown" when it cannot be read.
func (d *Device) TemperatureState() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.virtual {
		return "Ok"
	}
	if !d.connected {
		return "Unknown"
	}

	state, err := d.handle.GetEnum(vision.NodeTemperatureState)
	if err != nil {
		return "Unknown"
	}

	return state
}
