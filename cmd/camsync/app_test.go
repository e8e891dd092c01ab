package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/camsync/internal/camera"
	"codeberg.org/mutker/camsync/internal/config"
	"codeberg.org/mutker/camsync/internal/ingest"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/metrics"
	"codeberg.org/mutker/camsync/internal/trigger"
	"codeberg.org/mutker/camsync/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	m := metrics.DefaultConfig()
	m.Enabled = true
	m.DBPath = filepath.Join(t.TempDir(), "samples.db")
	m.BackupDir = filepath.Join(t.TempDir(), "backups")
	m.BatchSize = 1

	params := camera.DefaultParams()
	params.Triggered = false

	return &config.Config{
		LogLevel: config.LogLevelDebug,
		Interval: 10 * time.Millisecond,
		Cameras: config.CameraConfig{
			Virtual: 2,
			Names:   []string{"cam", "cam"},
			Params:  params,
		},
		Trigger: trigger.DefaultConfig(),
		Broker:  ingest.DefaultConfig(),
		Metrics: m,
	}
}

func TestRunWithEmulatedCameras(t *testing.T) {
	t.Setenv(vision.EmulatorEnv, "")

	a := newApp(testConfig(t), logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, a.run(ctx))
	require.Len(t, a.cameras, 2)

	assert.Equal(t, "cam", a.cameras[0].Name())
	assert.Equal(t, "cam_1", a.cameras[1].Name())
	for _, cam := range a.cameras {
		assert.True(t, cam.Connected())
		assert.True(t, cam.Grabbing())
	}
	assert.Nil(t, a.trigger)
	assert.Nil(t, a.ingest)

	a.shutdown()

	for _, cam := range a.cameras {
		assert.False(t, cam.Connected())
	}
	assert.Zero(t, a.registry.Len())
}

func TestCameraCountLimit(t *testing.T) {
	t.Setenv(vision.EmulatorEnv, "")

	cfg := testConfig(t)
	cfg.Cameras.Count = 1
	cfg.Metrics = metrics.DefaultConfig()

	a := newApp(cfg, logger.Nop())
	require.NoError(t, a.connectCameras())
	defer a.shutdown()

	assert.Len(t, a.cameras, 1)
}

func TestStartIngestMissingBroker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Broker.Kind = ingest.KindMQTT

	a := newApp(cfg, logger.Nop())
	err := a.startIngest(context.Background())
	require.Error(t, err)
	assert.Nil(t, a.ingest)
}

func TestStartTriggerMissingConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trigger.Kind = trigger.KindSerial

	a := newApp(cfg, logger.Nop())
	require.Error(t, a.startTrigger(context.Background()))
	assert.Nil(t, a.trigger)
}
