package emulator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"codeberg.org/mutker/camsync/internal/vision"
)

const (
	defaultSensorWidth  = 1024
	defaultSensorHeight = 1040
	defaultMaxFrameRate = 100.0
)

// Range bounds a numeric register.
type Range struct {
	Min, Max float64
}

// Write records one attempted register write.
type Write struct {
	Node  string
	Value any
}

// Device is an in-process camera implementing vision.Handle. It keeps a
// register map with ranges, computes the derived registers (WidthMax,
// HeightMax, ResultingFrameRate) and logs every write for inspection.
type Device struct {
	mu sync.Mutex

	info     vision.DeviceInfo
	open     bool
	grabbing bool

	sensorWidth  int
	sensorHeight int
	maxFrameRate float64

	floats map[string]float64
	ints   map[string]int64
	bools  map[string]bool
	enums  map[string]string
	ranges map[string]Range
	faults map[string]error

	defaults *Device
	writes   []Write
}

// Option configures a Device.
type Option func(*Device)

// WithSensor sets the full sensor size.
func WithSensor(width, height int) Option {
	return func(d *Device) {
		d.sensorWidth = width
		d.sensorHeight = height
	}
}

// WithRange bounds a numeric register.
func WithRange(node string, minValue, maxValue float64) Option {
	return func(d *Device) {
		d.ranges[node] = Range{Min: minValue, Max: maxValue}
	}
}

// WithFloat presets a float register.
func WithFloat(node string, value float64) Option {
	return func(d *Device) {
		d.floats[node] = value
	}
}

// WithEnum presets an enumeration register.
func WithEnum(node, value string) Option {
	return func(d *Device) {
		d.enums[node] = value
	}
}

// WithMaxFrameRate sets the free-running frame rate the sensor can reach.
func WithMaxFrameRate(fps float64) Option {
	return func(d *Device) {
		d.maxFrameRate = fps
	}
}

// NewDevice returns a closed device with factory defaults.
func NewDevice(serial string, class vision.DeviceClass, opts ...Option) *Device {
	d := &Device{
		info: vision.DeviceInfo{
			SerialNumber: serial,
			ModelName:    "Emulation",
			FullName:     fmt.Sprintf("%s#%s", class, serial),
			Class:        class,
		},
		sensorWidth:  defaultSensorWidth,
		sensorHeight: defaultSensorHeight,
		maxFrameRate: defaultMaxFrameRate,
		floats: map[string]float64{
			vision.NodeExposureTime:      5000,
			vision.NodeExposureTimeAbs:   5000,
			vision.NodeGain:              0,
			vision.NodeGamma:             1,
			vision.NodeBlackLevel:        0,
			vision.NodeFrameRate:         30,
			vision.NodeFrameRateAbs:      30,
			vision.NodeTriggerDelay:      0,
			vision.NodeLineDebouncerTime: 0,
		},
		ints: map[string]int64{
			vision.NodeExposureTimeRaw:   5000,
			vision.NodeBinningHorizontal: 1,
			vision.NodeBinningVertical:   1,
			vision.NodeThroughputLimit:   360000000,
		},
		bools: map[string]bool{
			vision.NodeFrameRateEnable: false,
			vision.NodeCenterX:         false,
			vision.NodeCenterY:         false,
		},
		enums: map[string]string{
			vision.NodeUserSetSelector:       "Default",
			vision.NodeAcquisitionMode:       "Continuous",
			vision.NodeExposureMode:          "Timed",
			vision.NodeTemperatureState:      "Ok",
			vision.NodeBinningHorizontalMode: "Sum",
			vision.NodeBinningVerticalMode:   "Sum",
		},
		ranges: map[string]Range{
			vision.NodeExposureTime:      {Min: 21, Max: 10000000},
			vision.NodeExposureTimeAbs:   {Min: 35, Max: 9999990},
			vision.NodeExposureTimeRaw:   {Min: 1, Max: 9999990},
			vision.NodeGain:              {Min: 0, Max: 36},
			vision.NodeGamma:             {Min: 0, Max: 3.99998},
			vision.NodeBlackLevel:        {Min: 0, Max: 31.9375},
			vision.NodeFrameRate:         {Min: 0.0001, Max: 1000},
			vision.NodeFrameRateAbs:      {Min: 0.0001, Max: 1000},
			vision.NodeBinningHorizontal: {Min: 1, Max: 4},
			vision.NodeBinningVertical:   {Min: 1, Max: 4},
		},
		faults: map[string]error{},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ints[vision.NodeWidth] = int64(d.sensorWidth)
	d.ints[vision.NodeHeight] = int64(d.sensorHeight)
	d.defaults = d.snapshot()

	return d
}

func (d *Device) snapshot() *Device {
	c := &Device{
		floats: make(map[string]float64, len(d.floats)),
		ints:   make(map[string]int64, len(d.ints)),
		bools:  make(map[string]bool, len(d.bools)),
		enums:  make(map[string]string, len(d.enums)),
	}
	for k, v := range d.floats {
		c.floats[k] = v
	}
	for k, v := range d.ints {
		c.ints[k] = v
	}
	for k, v := range d.bools {
		c.bools[k] = v
	}
	for k, v := range d.enums {
		c.enums[k] = v
	}

	return c
}

// InjectFault makes every access to node fail with err until cleared.
func (d *Device) InjectFault(node string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[node] = err
}

// ClearFault removes an injected fault.
func (d *Device) ClearFault(node string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.faults, node)
}

// SetRange changes the bounds of a numeric register.
func (d *Device) SetRange(node string, minValue, maxValue float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ranges[node] = Range{Min: minValue, Max: maxValue}
}

// Writes returns every write attempted so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Write, len(d.writes))
	copy(out, d.writes)

	return out
}

// WritesTo returns the values written to node, in order.
func (d *Device) WritesTo(node string) []any {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []any
	for _, w := range d.writes {
		if w.Node == node {
			out = append(out, w.Value)
		}
	}

	return out
}

// IsGrabbing reports the acquisition state.
func (d *Device) IsGrabbing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabbing
}

func (d *Device) Info() vision.DeviceInfo {
	return d.info
}

func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.faults["Open"]; err != nil {
		return err
	}
	d.open = true

	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false
	d.grabbing = false

	return nil
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// access checks the handle state and injected faults. Callers hold d.mu.
func (d *Device) access(node string) error {
	if !d.open {
		return &vision.AccessError{Node: node, Reason: "Node is not readable or writable, device is closed"}
	}

	return d.faults[node]
}

func (d *Device) checkRange(node string, value float64) error {
	r, ok := d.ranges[node]
	if !ok {
		return nil
	}

	if value > r.Max {
		return &vision.OutOfRangeError{
			Node: node,
			Message: fmt.Sprintf("Value = %f must be smaller than or equal %f. : OutOfRangeException thrown in node '%s' while calling '%s.SetValue()'",
				value, r.Max, node, node),
		}
	}
	if value < r.Min {
		return &vision.OutOfRangeError{
			Node: node,
			Message: fmt.Sprintf("Value = %f must be greater than or equal %f. : OutOfRangeException thrown in node '%s' while calling '%s.SetValue()'",
				value, r.Min, node, node),
		}
	}

	return nil
}

func (d *Device) GetFloat(node string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access(node); err != nil {
		return 0, err
	}

	if node == vision.NodeResultingFrameRate {
		return d.resultingFrameRate(), nil
	}

	v, ok := d.floats[node]
	if !ok {
		return 0, &vision.AccessError{Node: node, Reason: "Node not available"}
	}

	return v, nil
}

func (d *Device) resultingFrameRate() float64 {
	if !d.bools[vision.NodeFrameRateEnable] {
		return d.maxFrameRate
	}

	return math.Min(d.floats[vision.NodeFrameRate], d.maxFrameRate)
}

func (d *Device) SetFloat(node string, value float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes = append(d.writes, Write{Node: node, Value: value})

	if err := d.access(node); err != nil {
		return err
	}
	if err := d.checkRange(node, value); err != nil {
		return err
	}
	d.floats[node] = value

	return nil
}

func (d *Device) GetInt(node string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access(node); err != nil {
		return 0, err
	}

	switch node {
	case vision.NodeWidthMax:
		return int64(d.sensorWidth) / d.ints[vision.NodeBinningHorizontal], nil
	case vision.NodeHeightMax:
		return int64(d.sensorHeight) / d.ints[vision.NodeBinningVertical], nil
	}

	v, ok := d.ints[node]
	if !ok {
		return 0, &vision.AccessError{Node: node, Reason: "Node not available"}
	}

	return v, nil
}

func (d *Device) SetInt(node string, value int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes = append(d.writes, Write{Node: node, Value: value})

	if err := d.access(node); err != nil {
		return err
	}
	if err := d.checkRange(node, float64(value)); err != nil {
		return err
	}

	switch node {
	case vision.NodeWidth:
		if limit := int64(d.sensorWidth) / d.ints[vision.NodeBinningHorizontal]; value > limit {
			return &vision.OutOfRangeError{Node: node, Message: fmt.Sprintf("Value = %d must be smaller than or equal %d.", value, limit)}
		}
	case vision.NodeHeight:
		if limit := int64(d.sensorHeight) / d.ints[vision.NodeBinningVertical]; value > limit {
			return &vision.OutOfRangeError{Node: node, Message: fmt.Sprintf("Value = %d must be smaller than or equal %d.", value, limit)}
		}
	}
	d.ints[node] = value

	return nil
}

func (d *Device) GetBool(node string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access(node); err != nil {
		return false, err
	}

	v, ok := d.bools[node]
	if !ok {
		return false, &vision.AccessError{Node: node, Reason: "Node not available"}
	}

	return v, nil
}

func (d *Device) SetBool(node string, value bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes = append(d.writes, Write{Node: node, Value: value})

	if err := d.access(node); err != nil {
		return err
	}
	d.bools[node] = value

	return nil
}

func (d *Device) GetEnum(node string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access(node); err != nil {
		return "", err
	}

	v, ok := d.enums[node]
	if !ok {
		return "", &vision.AccessError{Node: node, Reason: "Node not available"}
	}

	return v, nil
}

func (d *Device) SetEnum(node, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes = append(d.writes, Write{Node: node, Value: value})

	if err := d.access(node); err != nil {
		return err
	}
	d.enums[node] = value

	return nil
}

func (d *Device) Execute(node string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes = append(d.writes, Write{Node: node, Value: "execute"})

	if err := d.access(node); err != nil {
		return err
	}

	if node == vision.NodeUserSetLoad {
		d.loadDefaults()
	}

	return nil
}

// loadDefaults restores the factory register values. Callers hold d.mu.
func (d *Device) loadDefaults() {
	fresh := d.defaults.snapshot()
	d.floats = fresh.floats
	d.ints = fresh.ints
	d.bools = fresh.bools
	d.enums = fresh.enums
}

func (d *Device) GrabOne(_ time.Duration) (vision.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access("GrabOne"); err != nil {
		return vision.Frame{}, err
	}

	return vision.Frame{
		Width:  int(d.ints[vision.NodeWidth]),
		Height: int(d.ints[vision.NodeHeight]),
	}, nil
}

func (d *Device) StartGrabbing() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access("StartGrabbing"); err != nil {
		return err
	}
	d.grabbing = true

	return nil
}

func (d *Device) StopGrabbing() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.access("StopGrabbing"); err != nil {
		return err
	}
	d.grabbing = false

	return nil
}
