package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/camsync/internal/config"
	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/ingest"
	"codeberg.org/mutker/camsync/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func load(t *testing.T, opts ...config.Option) (*config.Config, error) {
	t.Helper()

	base := []config.Option{
		config.WithArgs(nil),
		config.WithDotEnv(""),
		config.WithEnvPrefix("CAMSYNC_TEST"),
	}

	return config.Load(append(base, opts...)...)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, config.WithConfigFile(writeFile(t, "camsync.toml", "")))
	require.NoError(t, err)

	assert.Equal(t, config.LogLevelWarning, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 60.0, cfg.Cameras.Params.Framerate)
	assert.Equal(t, 5000.0, cfg.Cameras.Params.Exposure)
	assert.True(t, cfg.Cameras.Params.Triggered)
	assert.Equal(t, 1, cfg.Cameras.Params.Binning)
	assert.Equal(t, trigger.KindNone, cfg.Trigger.Kind)
	assert.Equal(t, 5*time.Second, cfg.Trigger.CommandTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Trigger.SettleDelay)
	assert.Equal(t, ingest.KindNone, cfg.Broker.Kind)
	assert.Equal(t, byte(2), cfg.Broker.QoS)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, uint64(8192), cfg.FileLimit)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "camsync.toml", `
log_level = "debug"
interval = "2s"

[cameras]
virtual = 2
names = ["left", "right"]
triggered = false
framerate = 30.5
binning = 2
binning_mode = "avg"

[trigger]
kind = "serial"
comport = "/dev/ttyACM0"
command_timeout = "0s"

[broker]
kind = "nats"
host = "broker.local"
port = 4222

[broker.policies]
PS = "sentinel"

[metrics]
enabled = true
db_path = "/tmp/camsync/samples.db"
batch_size = 5
`)

	cfg, err := load(t, config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 2, cfg.Cameras.Virtual)
	assert.Equal(t, []string{"left", "right"}, cfg.Cameras.Names)
	assert.False(t, cfg.Cameras.Params.Triggered)
	assert.Equal(t, 30.5, cfg.Cameras.Params.Framerate)
	assert.Equal(t, "avg", cfg.Cameras.Params.BinningMode)
	assert.Equal(t, trigger.KindSerial, cfg.Trigger.Kind)
	assert.Equal(t, "/dev/ttyACM0", cfg.Trigger.ComPort)
	assert.Zero(t, cfg.Trigger.CommandTimeout)
	assert.Equal(t, ingest.KindNATS, cfg.Broker.Kind)
	assert.Equal(t, 4222, cfg.Broker.Port)
	assert.Equal(t, map[string]string{"PS": "sentinel"}, cfg.Broker.Policies)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 5, cfg.Metrics.BatchSize)
}

func TestLegacyEnvironment(t *testing.T) {
	t.Setenv("TRIGGER_HOST", "10.0.0.7")
	t.Setenv("TRIGGER_USER", "pi")
	t.Setenv("TRIGGER_PASS", "secret")
	t.Setenv("MQTT_HOST", "broker.local")
	t.Setenv("MQTT_PORT", "1883")

	cfg, err := load(t, config.WithConfigFile(writeFile(t, "camsync.toml", "")))
	require.NoError(t, err)

	assert.Equal(t, trigger.KindSSH, cfg.Trigger.Kind, "kind follows the configured host")
	assert.Equal(t, "10.0.0.7", cfg.Trigger.Host)
	assert.Equal(t, "pi", cfg.Trigger.User)
	assert.Equal(t, "secret", cfg.Trigger.Password)
	assert.Equal(t, ingest.KindMQTT, cfg.Broker.Kind)
	assert.Equal(t, "broker.local", cfg.Broker.Host)
	assert.Equal(t, 1883, cfg.Broker.Port)
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, "camsync.toml", `
[trigger]
comport = "/dev/ttyUSB0"
baud_rate = 19200

[cameras]
framerate = 20.0
exposure = 800.0
`)
	dotenv := writeFile(t, ".env", `
TRIGGER_COMPORT=/dev/ttyUSB1
CAMSYNC_TEST_CAMERAS_FRAMERATE=25
CAMSYNC_TEST_CAMERAS_EXPOSURE=900
UNRELATED=1
`)
	t.Setenv("CAMSYNC_TEST_CAMERAS_FRAMERATE", "40")

	cfg, err := config.Load(
		config.WithConfigFile(path),
		config.WithDotEnv(dotenv),
		config.WithEnvPrefix("CAMSYNC_TEST"),
		config.WithArgs([]string{"--exposure", "1200", "--debug"}),
	)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Trigger.ComPort, ".env overrides the file")
	assert.Equal(t, 19200, cfg.Trigger.BaudRate, "file overrides defaults")
	assert.Equal(t, trigger.KindSerial, cfg.Trigger.Kind)
	assert.Equal(t, 40.0, cfg.Cameras.Params.Framerate, "environment overrides .env")
	assert.Equal(t, 1200.0, cfg.Cameras.Params.Exposure, "flags override everything")
	assert.True(t, cfg.Debug)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := load(t, config.WithConfigFile(filepath.Join(t.TempDir(), "absent.toml")))
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestBadFlag(t *testing.T) {
	_, err := load(t, config.WithArgs([]string{"--no-such-flag"}))
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		toml  string
		field string
	}{
		{name: "log level", toml: `log_level = "loud"`, field: "log_level"},
		{name: "interval", toml: `interval = "0s"`, field: "interval"},
		{name: "binning", toml: "[cameras]\nbinning = 5", field: "cameras.binning"},
		{name: "virtual", toml: "[cameras]\nvirtual = -1", field: "cameras.virtual"},
		{name: "trigger kind", toml: "[trigger]\nkind = \"gpio\""},
		{name: "broker qos", toml: "[broker]\nqos = 3"},
		{name: "policy", toml: "[broker.policies]\nNOPE = \"sentinel\""},
		{name: "metrics path", toml: "[metrics]\nenabled = true\ndb_path = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, config.WithConfigFile(writeFile(t, "camsync.toml", tt.toml)))
			require.Error(t, err)

			if tt.field == "" {
				return
			}

			assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

			var verr config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field())
		})
	}
}
