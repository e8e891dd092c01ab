package trigger

import (
	"context"
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"golang.org/x/crypto/ssh"
)

// SSHTrigger drives a hardware-PWM pin through pigpio on a remote host.
type SSHTrigger struct {
	mu sync.Mutex

	cfg    Config
	log    logger.Logger
	runner CommandRunner

	connected bool
	frequency float64
	dutyCycle float64
}

var _ Trigger = (*SSHTrigger)(nil)

// NewSSHTrigger checks the host answers a ping and opens a password session.
func NewSSHTrigger(ctx context.Context, cfg Config, log logger.Logger, opts ...Option) (*SSHTrigger, error) {
	errFactory := errors.New()
	o := buildOptions(opts)
	log = log.WithComponent("trigger")

	missing := 0
	for _, v := range []string{cfg.Host, cfg.User, cfg.Password} {
		if v == "" {
			missing++
		}
	}
	if missing > 0 {
		return nil, errFactory.WithData(ErrMissingConfig,
			fmt.Sprintf("%d of TRIGGER_HOST/TRIGGER_USER/TRIGGER_PASS not set", missing))
	}

	if err := o.pinger.Ping(ctx, cfg.Host, cfg.PingTimeout); err != nil {
		return nil, errFactory.Wrap(ErrConnectionFailed, err).WithData(fmt.Sprintf("trigger host %s is unreachable", cfg.Host))
	}

	runner, err := o.dial(ctx, cfg)
	if err != nil {
		return nil, errFactory.Wrap(ErrConnectionFailed, err).WithData(fmt.Sprintf("ssh %s@%s", cfg.User, cfg.Host))
	}

	log.Info().Str("host", cfg.Host).Msg("Trigger connected")

	return &SSHTrigger{
		cfg:       cfg,
		log:       log,
		runner:    runner,
		connected: true,
		dutyCycle: defaultDutyCycle,
	}, nil
}

// Start emits a square wave at frequency Hz with 50% duty.
func (t *SSHTrigger) Start(ctx context.Context, frequency float64) error {
	return t.StartWithDuty(ctx, frequency, defaultDutyCycle)
}

// StartWithDuty emits frequency Hz with dutyPct percent high time. Both are
// truncated to what the PWM hardware takes.
func (t *SSHTrigger) StartWithDuty(ctx context.Context, frequency, dutyPct float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.New().WithMessage(ErrInvalidState, "trigger is not connected")
	}

	cmd := fmt.Sprintf("pigs hp %d %d %d", t.cfg.PWMPin, int64(math.Floor(frequency)), int64(math.Floor(dutyPct*1e4)))
	if err := t.run(ctx, cmd); err != nil {
		return err
	}

	t.frequency = frequency
	t.dutyCycle = dutyPct
	t.log.Debug().Float64("frequency", frequency).Float64("duty", dutyPct).Msg("Trigger started")

	return nil
}

// Stop turns the PWM off, pulls the pin low and waits the settle delay.
func (t *SSHTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return errors.New().WithMessage(ErrInvalidState, "trigger is not connected")
	}

	cmd := fmt.Sprintf("pigs hp %d 0 0 && pigs w %d 0", t.cfg.PWMPin, t.cfg.PWMPin)
	if err := t.run(ctx, cmd); err != nil {
		return err
	}
	settle(t.cfg.SettleDelay)

	t.frequency = 0
	t.log.Debug().Msg("Trigger stopped")

	return nil
}

func (t *SSHTrigger) run(ctx context.Context, cmd string) error {
	return bounded(ctx, t.cfg.CommandTimeout, cmd, func(ctx context.Context) error {
		return t.runner.Run(ctx, cmd)
	})
}

// Disconnect closes the session. Calling it again is a no-op.
func (t *SSHTrigger) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	if err := t.runner.Close(); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}
	t.log.Info().Str("host", t.cfg.Host).Msg("Trigger disconnected")

	return nil
}

func (t *SSHTrigger) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Frequency is the last commanded frequency, zero after Stop.
func (t *SSHTrigger) Frequency() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frequency
}

type sshRunner struct {
	client *ssh.Client
}

func dialSSH(ctx context.Context, cfg Config) (CommandRunner, error) {
	clientCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{ssh.Password(cfg.Password)},
		// Trigger hosts are provisioned ad hoc and never in known_hosts.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.CommandTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if cfg.CommandTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cfg.CommandTimeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return &sshRunner{client: ssh.NewClient(c, chans, reqs)}, nil
}

func (r *sshRunner) Run(ctx context.Context, cmd string) error {
	session, err := r.client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return ctx.Err()
	}
}

func (r *sshRunner) Close() error {
	return r.client.Close()
}
