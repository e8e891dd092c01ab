package camera

import (
	"math"
	"regexp"
	"strconv"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/vision"
)

// Direction tells which side of the accepted range a rejected value fell on.
type Direction int

const (
	// AboveMaximum: the value must be smaller than or equal to the boundary.
	AboveMaximum Direction = iota
	// BelowMinimum: the value must be greater than or equal to the boundary.
	BelowMinimum
)

// RangeViolation is the parsed form of an SDK out-of-range fault.
type RangeViolation struct {
	Boundary  float64
	Direction Direction
}

var rangePattern = regexp.MustCompile(`must be (smaller|greater) than or equal (?:to )?(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)

// ParseRangeViolation extracts the violated boundary from an SDK message.
// Messages naming neither an upper nor a lower bound are ErrUnrecognizedHardware.
func ParseRangeViolation(msg string) (RangeViolation, error) {
	m := rangePattern.FindStringSubmatch(msg)
	if m == nil {
		return RangeViolation{}, errors.New().WithData(ErrUnrecognizedHardware, msg)
	}

	boundary, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return RangeViolation{}, errors.New().Wrap(ErrUnrecognizedHardware, err).WithData(msg)
	}

	rv := RangeViolation{Boundary: boundary, Direction: AboveMaximum}
	if m[1] == "greater" {
		rv.Direction = BelowMinimum
	}

	return rv, nil
}

// Corrected returns the nearest accepted value at two decimals: floored under
// an upper bound, ceiled over a lower bound.
func (rv RangeViolation) Corrected() float64 {
	// Snap away binary noise first so 0.3 stays 0.3 and does not ceil to 0.31.
	scaled := math.Round(rv.Boundary*100*1e6) / 1e6
	if rv.Direction == BelowMinimum {
		return math.Ceil(scaled) / 100
	}

	return math.Floor(scaled) / 100
}

// writeRanged writes value and, if the device rejects it as out of range,
// writes the corrected boundary once. It returns the value that was written.
func writeRanged(node string, write func(float64) error, value float64) (float64, error) {
	err := write(value)
	if err == nil {
		return value, nil
	}

	oor, ok := vision.IsOutOfRange(err)
	if !ok {
		return 0, hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	rv, err := ParseRangeViolation(oor.Message)
	if err != nil {
		return 0, err
	}

	corrected := rv.Corrected()
	if err := write(corrected); err != nil {
		return 0, hardwareError(errors.ErrHardwareWriteFailed, node, err)
	}

	return corrected, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
