package metrics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/procvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	name  string
	temp  float64
	known bool
}

func (c fakeCamera) Name() string                 { return c.name }
func (fakeCamera) Serial() string                 { return "0815-0000" }
func (fakeCamera) Connected() bool                { return true }
func (fakeCamera) Grabbing() bool                 { return true }
func (fakeCamera) Framerate() float64             { return 60 }
func (c fakeCamera) Temperature() (float64, bool) { return c.temp, c.known }
func (fakeCamera) TemperatureState() string       { return "Ok" }

type fakeTrigger struct{}

func (fakeTrigger) Connected() bool    { return true }
func (fakeTrigger) Frequency() float64 { return 60 }

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()

	return Config{
		Enabled:   true,
		DBPath:    filepath.Join(dir, "samples.db"),
		BackupDir: filepath.Join(dir, "backups"),
		BatchSize: 2,
	}
}

func sampleSnapshot() *Snapshot {
	store := procvalue.NewStore()
	store.Set(procvalue.PressureAct, 2.5)
	store.Fail(procvalue.Speed)

	return Capture(time.UnixMilli(1714557600000), store, fakeTrigger{}, []CameraSource{
		fakeCamera{name: "cam", temp: 41.5, known: true},
		fakeCamera{name: "cam_1"},
	})
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}

func TestCapture(t *testing.T) {
	s := sampleSnapshot()

	assert.Equal(t, 2.5, s.Values[procvalue.PressureAct])
	assert.Equal(t, procvalue.FailValue, s.Values[procvalue.Speed])
	assert.Len(t, s.Values, len(procvalue.Keys))
	assert.Equal(t, TriggerState{Connected: true, Frequency: 60}, s.Trigger)
	require.Len(t, s.Cameras, 2)
	assert.True(t, s.Cameras[0].TemperatureKnown)
	assert.False(t, s.Cameras[1].TemperatureKnown)
}

func TestCaptureWithoutTrigger(t *testing.T) {
	s := Capture(time.Now(), procvalue.NewStore(), nil, nil)

	assert.False(t, s.Trigger.Connected)
	assert.Empty(t, s.Cameras)
}

func TestRepositoryFlushesFullBatch(t *testing.T) {
	repo, err := NewRepository(testConfig(t), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.Record(sampleSnapshot()))
	assert.Zero(t, count(t, repo.db, "samples"))

	require.NoError(t, repo.Record(sampleSnapshot()))
	assert.Equal(t, 2, count(t, repo.db, "samples"))
	assert.Equal(t, 4, count(t, repo.db, "camera_samples"))

	var pa, speed float64
	require.NoError(t, repo.db.QueryRow(
		"SELECT pressure_act, speed FROM samples LIMIT 1").Scan(&pa, &speed))
	assert.Equal(t, 2.5, pa)
	assert.Equal(t, -1.0, speed)

	var temp sql.NullFloat64
	require.NoError(t, repo.db.QueryRow(
		"SELECT temperature FROM camera_samples WHERE name = 'cam_1' LIMIT 1").Scan(&temp))
	assert.False(t, temp.Valid)
}

func TestRepositoryCloseFlushesPartialBatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, repo.Record(sampleSnapshot()))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 1, count(t, db, "samples"))

	err = repo.Record(sampleSnapshot())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidState))
}

func TestRepositoryTimedFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 10
	cfg.BatchTimeout = 20 * time.Millisecond

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.Record(sampleSnapshot()))
	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.buffer) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSchemaMismatchCreatesBackup(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := NewRepository(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	version, err := GetSchemaVersion(repo.db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "samples_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestServiceDisabledIsNoop(t *testing.T) {
	c, err := NewService(DefaultConfig(), logger.Nop())
	require.NoError(t, err)

	assert.NoError(t, c.Record(context.Background(), sampleSnapshot()))
	assert.NoError(t, c.Close())
}

func TestServiceRecord(t *testing.T) {
	c, err := NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.True(t, errors.HasCode(c.Record(context.Background(), nil), ErrInvalidSnapshot))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.HasCode(c.Record(ctx, sampleSnapshot()), ErrOperationTimeout))

	assert.NoError(t, c.Record(context.Background(), sampleSnapshot()))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := testConfig(t)
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidDBPath))

	cfg = testConfig(t)
	cfg.BatchSize = -1
	assert.True(t, errors.HasCode(cfg.Validate(), ErrInvalidConfig))
}
