package metrics

import (
	"time"

	"codeberg.org/mutker/camsync/internal/procvalue"
)

// Capture reads the current state into a Snapshot. trig may be nil when no
// trigger is configured.
func Capture(now time.Time, store *procvalue.Store, trig TriggerSource, cameras []CameraSource) *Snapshot {
	s := &Snapshot{
		Timestamp: now,
		Values:    store.Snapshot(),
		Cameras:   make([]CameraState, 0, len(cameras)),
	}

	if trig != nil {
		s.Trigger = TriggerState{
			Connected: trig.Connected(),
			Frequency: trig.Frequency(),
		}
	}

	for _, cam := range cameras {
		temp, known := cam.Temperature()
		s.Cameras = append(s.Cameras, CameraState{
			Name:             cam.Name(),
			Serial:           cam.Serial(),
			Connected:        cam.Connected(),
			Grabbing:         cam.Grabbing(),
			Framerate:        cam.Framerate(),
			Temperature:      temp,
			TemperatureKnown: known,
			TemperatureState: cam.TemperatureState(),
		})
	}

	return s
}
