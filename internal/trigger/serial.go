package trigger

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"go.bug.st/serial"
)

// SerialTrigger drives a microcontroller pulse generator that takes the
// frequency as a decimal line, 0 meaning off.
type SerialTrigger struct {
	mu sync.Mutex

	cfg  Config
	log  logger.Logger
	port io.WriteCloser

	connected bool
	frequency float64
}

var _ Trigger = (*SerialTrigger)(nil)

// NewSerialTrigger opens the configured port at the configured baud rate, 8N1.
func NewSerialTrigger(cfg Config, log logger.Logger, opts ...Option) (*SerialTrigger, error) {
	errFactory := errors.New()
	o := buildOptions(opts)
	log = log.WithComponent("trigger")

	if cfg.ComPort == "" {
		return nil, errFactory.WithData(ErrMissingConfig, "TRIGGER_COMPORT not set")
	}

	baud := cfg.BaudRate
	if baud <= 0 {
		baud = defaultBaudRate
	}

	port, err := o.open(cfg.ComPort, baud)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnectionFailed, err).WithData(cfg.ComPort)
	}

	log.Info().Str("port", cfg.ComPort).Int("baud", baud).Msg("Trigger connected")

	return &SerialTrigger{
		cfg:       cfg,
		log:       log,
		port:      port,
		connected: true,
	}, nil
}

func openSerial(port string, baud int) (io.WriteCloser, error) {
	return serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Start sends the whole-number frequency.
func (t *SerialTrigger) Start(ctx context.Context, frequency float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.New().WithMessage(ErrInvalidState, "trigger is not connected")
	}

	if err := t.write(ctx, fmt.Sprintf("%d\r\n", int64(math.Floor(frequency)))); err != nil {
		return err
	}
	t.frequency = frequency
	t.log.Debug().Float64("frequency", frequency).Msg("Trigger started")

	return nil
}

// Stop sends 0 and waits the settle delay.
func (t *SerialTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.New().WithMessage(ErrInvalidState, "trigger is not connected")
	}

	if err := t.write(ctx, "0\r\n"); err != nil {
		return err
	}
	settle(t.cfg.SettleDelay)

	t.frequency = 0
	t.log.Debug().Msg("Trigger stopped")

	return nil
}

func (t *SerialTrigger) write(ctx context.Context, line string) error {
	return bounded(ctx, t.cfg.CommandTimeout, line, func(context.Context) error {
		_, err := io.WriteString(t.port, line)
		return err
	})
}

// Disconnect closes the port. Calling it again is a no-op.
func (t *SerialTrigger) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	if err := t.port.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	t.log.Info().Str("port", t.cfg.ComPort).Msg("Trigger disconnected")

	return nil
}

func (t *SerialTrigger) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *SerialTrigger) Frequency() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frequency
}
