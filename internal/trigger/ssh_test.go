package trigger

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sshConfig() Config {
	cfg := DefaultConfig()
	cfg.Kind = KindSSH
	cfg.Host = "10.0.0.2"
	cfg.User = "pi"
	cfg.Password = "raspberry"
	cfg.SettleDelay = 20 * time.Millisecond

	return cfg
}

func newTestSSHTrigger(t *testing.T, cfg Config) (*SSHTrigger, *MockCommandRunner) {
	t.Helper()

	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	runner := NewMockCommandRunner(ctrl)

	pinger.EXPECT().Ping(gomock.Any(), cfg.Host, cfg.PingTimeout).Return(nil)

	trig, err := NewSSHTrigger(context.Background(), cfg, logger.Nop(),
		WithPinger(pinger),
		WithDialer(func(context.Context, Config) (CommandRunner, error) { return runner, nil }),
	)
	require.NoError(t, err)
	require.True(t, trig.Connected())

	return trig, runner
}

func TestNewSSHTriggerMissingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "10.0.0.2"

	_, err := NewSSHTrigger(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrMissingConfig))
	assert.Contains(t, err.Error(), "2 of")
}

func TestNewSSHTriggerUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	pinger.EXPECT().Ping(gomock.Any(), "10.0.0.2", time.Second).Return(stderrors.New("timeout"))

	dialed := false
	_, err := NewSSHTrigger(context.Background(), sshConfig(), logger.Nop(),
		WithPinger(pinger),
		WithDialer(func(context.Context, Config) (CommandRunner, error) {
			dialed = true
			return nil, nil
		}),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrConnectionFailed))
	assert.False(t, dialed, "no session attempted after a failed ping")
}

func TestNewSSHTriggerAuthFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := NewMockPinger(ctrl)
	pinger.EXPECT().Ping(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := NewSSHTrigger(context.Background(), sshConfig(), logger.Nop(),
		WithPinger(pinger),
		WithDialer(func(context.Context, Config) (CommandRunner, error) {
			return nil, stderrors.New("ssh: unable to authenticate")
		}),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrConnectionFailed))
}

func TestSSHTriggerStart(t *testing.T) {
	trig, runner := newTestSSHTrigger(t, sshConfig())

	runner.EXPECT().Run(gomock.Any(), "pigs hp 18 30 500000").Return(nil)
	require.NoError(t, trig.Start(context.Background(), 30.7))
	assert.Equal(t, 30.7, trig.Frequency())

	runner.EXPECT().Run(gomock.Any(), "pigs hp 18 100 255000").Return(nil)
	require.NoError(t, trig.StartWithDuty(context.Background(), 100, 25.5))
}

func TestSSHTriggerStop(t *testing.T) {
	cfg := sshConfig()
	trig, runner := newTestSSHTrigger(t, cfg)

	runner.EXPECT().Run(gomock.Any(), "pigs hp 18 0 0 && pigs w 18 0").Return(nil).Times(1)

	start := time.Now()
	require.NoError(t, trig.Stop(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), cfg.SettleDelay)
	assert.Zero(t, trig.Frequency())
}

func TestSSHTriggerStopSettlesAfterCancel(t *testing.T) {
	cfg := sshConfig()
	trig, runner := newTestSSHTrigger(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner.EXPECT().Run(gomock.Any(), "pigs hp 18 0 0 && pigs w 18 0").
		DoAndReturn(func(context.Context, string) error {
			time.AfterFunc(time.Millisecond, cancel)
			return nil
		})

	start := time.Now()
	require.NoError(t, trig.Stop(ctx))
	assert.GreaterOrEqual(t, time.Since(start), cfg.SettleDelay, "settle delay is not cut short")
	assert.Zero(t, trig.Frequency())
}

func TestSSHTriggerCommandTimeout(t *testing.T) {
	cfg := sshConfig()
	cfg.CommandTimeout = 20 * time.Millisecond
	trig, runner := newTestSSHTrigger(t, cfg)

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := trig.Start(context.Background(), 60)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrTimeout))
	assert.Zero(t, trig.Frequency())
}

func TestSSHTriggerCommandFailure(t *testing.T) {
	trig, runner := newTestSSHTrigger(t, sshConfig())

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(stderrors.New("pigs: command not found"))

	err := trig.Start(context.Background(), 60)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrCommandFailed))
}

func TestSSHTriggerDisconnect(t *testing.T) {
	trig, runner := newTestSSHTrigger(t, sshConfig())

	runner.EXPECT().Close().Return(nil).Times(1)
	require.NoError(t, trig.Disconnect())
	require.NoError(t, trig.Disconnect())
	assert.False(t, trig.Connected())

	err := trig.Start(context.Background(), 60)
	assert.True(t, errors.HasCode(err, ErrInvalidState))
	err = trig.Stop(context.Background())
	assert.True(t, errors.HasCode(err, ErrInvalidState))
}
