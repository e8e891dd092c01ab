// Package trigger drives the external pulse generator that fires the camera
// trigger line, either through a shell on a GPIO host or over a serial link.
package trigger

//go:generate mockgen -destination=mock_trigger.go -package=trigger codeberg.org/mutker/camsync/internal/trigger CommandRunner,Pinger

import (
	"context"
	"time"
)

// Trigger starts and stops the trigger pulse train. Commands must not be
// issued concurrently; implementations serialize them anyway.
type Trigger interface {
	Start(ctx context.Context, frequency float64) error
	Stop(ctx context.Context) error
	Disconnect() error
	Connected() bool
	Frequency() float64
}

// CommandRunner executes one shell command on the trigger host.
type CommandRunner interface {
	Run(ctx context.Context, cmd string) error
	Close() error
}

// Pinger checks that a host answers before a session is attempted.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) error
}
