package logger

import "codeberg.org/mutker/camsync/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	// WithComponent returns a child logger tagging every event with component.
	WithComponent(component string) Logger
}
