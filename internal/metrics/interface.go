// Package metrics samples process values together with trigger and camera
// state into a SQLite history.
package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/camsync/internal/procvalue"
)

// Collector records snapshots. A disabled collector accepts and drops them.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository stores snapshots.
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

type Snapshot struct {
	Timestamp time.Time
	Values    map[procvalue.Key]float64
	Trigger   TriggerState
	Cameras   []CameraState
}

type TriggerState struct {
	Connected bool
	Frequency float64
}

type CameraState struct {
	Name             string
	Serial           string
	Connected        bool
	Grabbing         bool
	Framerate        float64
	Temperature      float64
	TemperatureKnown bool
	TemperatureState string
}

// TriggerSource is the part of a trigger a snapshot reads.
type TriggerSource interface {
	Connected() bool
	Frequency() float64
}

// CameraSource is the part of a camera a snapshot reads.
type CameraSource interface {
	Name() string
	Serial() string
	Connected() bool
	Grabbing() bool
	Framerate() float64
	Temperature() (float64, bool)
	TemperatureState() string
}
