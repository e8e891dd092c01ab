package camera

import (
	"strings"

	"codeberg.org/mutker/camsync/internal/errors"
)

// BinningMode is how binned pixels are combined.
type BinningMode string

const (
	BinningSum     BinningMode = "Sum"
	BinningAverage BinningMode = "Average"
)

// ParseBinningMode normalizes free text. Unrecognized text falls back to Sum.
func ParseBinningMode(s string) BinningMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "m", "avg", "average", "mean":
		return BinningAverage
	default:
		// s, sum, add, addition, summation and anything unknown
		return BinningSum
	}
}

const (
	DefaultName = "unnamed"

	// throughputLimit is a bit below the USB3 link maximum; cameras are more
	// stable with it.
	throughputLimit = 342000000

	triggerLine = "Line4"

	// ROI margins the sensor requires, before binning.
	roiMarginX = 16
	roiMarginY = 8

	virtualMaxFramerate = 100.0
)

// Params is the initial parameter set of a Device.
type Params struct {
	Name        string
	Framerate   float64
	Exposure    float64
	Gain        float64
	Gamma       float64
	BlackLevel  float64
	Triggered   bool
	Binning     int
	BinningMode string
}

// DefaultParams returns the factory parameter set.
func DefaultParams() Params {
	return Params{
		Name:        DefaultName,
		Framerate:   60,
		Exposure:    5000,
		Gain:        1.0,
		Gamma:       1.0,
		BlackLevel:  0.0,
		Triggered:   true,
		Binning:     1,
		BinningMode: "sum",
	}
}

func validBinning(v int) bool {
	return v >= 1 && v <= 4
}

func invalidBinning(v int) error {
	return errors.New().WithData(errors.ErrInvalidArgument, struct {
		Parameter string
		Value     int
		Allowed   []int
	}{
		Parameter: "binning",
		Value:     v,
		Allowed:   []int{1, 2, 3, 4},
	})
}
