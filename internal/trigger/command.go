package trigger

import (
	"context"
	"io"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
)

// Option configures a trigger.
type Option func(*options)

type options struct {
	pinger Pinger
	dial   func(ctx context.Context, cfg Config) (CommandRunner, error)
	open   func(port string, baud int) (io.WriteCloser, error)
}

// WithPinger replaces the ICMP reachability probe.
func WithPinger(p Pinger) Option {
	return func(o *options) {
		o.pinger = p
	}
}

// WithDialer replaces the SSH session factory.
func WithDialer(dial func(ctx context.Context, cfg Config) (CommandRunner, error)) Option {
	return func(o *options) {
		o.dial = dial
	}
}

// WithPortOpener replaces the serial port factory.
func WithPortOpener(open func(port string, baud int) (io.WriteCloser, error)) Option {
	return func(o *options) {
		o.open = open
	}
}

func buildOptions(opts []Option) options {
	o := options{
		pinger: ICMPPinger{},
		dial:   dialSSH,
		open:   openSerial,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// bounded runs fn under timeout (zero means none). fn runs on its own
// goroutine, so a write that ignores ctx cannot hold the caller past the deadline.
func bounded(ctx context.Context, timeout time.Duration, cmd string, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err == nil {
		return nil
	}

	errFactory := errors.New()
	if errors.Is(err, context.DeadlineExceeded) {
		return errFactory.Wrap(ErrTimeout, err).WithData(cmd)
	}

	return errFactory.Wrap(ErrCommandFailed, err).WithData(cmd)
}

// settle waits d. It does not watch a context: once the stop command has gone
// out, the line needs the full delay before anything else drives it.
func settle(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
