package trigger

import (
	"fmt"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
)

// Kind selects the trigger implementation.
type Kind string

const (
	KindSSH    Kind = "ssh"
	KindSerial Kind = "serial"
	KindNone   Kind = "none"
)

const (
	defaultSSHPort        = 22
	defaultBaudRate       = 9600
	defaultPWMPin         = 18
	defaultDutyCycle      = 50.0
	defaultPingTimeout    = time.Second
	defaultCommandTimeout = 5 * time.Second
	defaultSettleDelay    = 100 * time.Millisecond
)

type Config struct {
	Kind Kind

	// Remote shell
	Host     string
	User     string
	Password string
	Port     int
	PWMPin   int

	// Serial link
	ComPort  string
	BaudRate int

	PingTimeout time.Duration
	// CommandTimeout bounds every command; zero waits indefinitely.
	CommandTimeout time.Duration
	// SettleDelay is waited after Stop so the line is low before the caller moves on.
	SettleDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Kind:           KindNone,
		Port:           defaultSSHPort,
		PWMPin:         defaultPWMPin,
		BaudRate:       defaultBaudRate,
		PingTimeout:    defaultPingTimeout,
		CommandTimeout: defaultCommandTimeout,
		SettleDelay:    defaultSettleDelay,
	}
}

// Validate checks structural settings. Missing credentials are reported by
// the constructors, which know which ones they need.
func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Kind {
	case KindSSH, KindSerial, KindNone:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("unknown trigger kind %q", c.Kind))
	}

	if c.Kind == KindSSH && (c.Port <= 0 || c.Port > 65535) {
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("invalid trigger port %d", c.Port))
	}
	if c.Kind == KindSerial && c.BaudRate <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, fmt.Sprintf("invalid baud rate %d", c.BaudRate))
	}
	if c.CommandTimeout < 0 || c.SettleDelay < 0 || c.PingTimeout < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "trigger durations must not be negative")
	}

	return nil
}
