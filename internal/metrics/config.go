package metrics

import (
	"time"

	"codeberg.org/mutker/camsync/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/camsync/samples.db"
	defaultBackupDir    = "/var/lib/camsync/backups"
	defaultBatchSize    = 10
	defaultBatchTimeout = 30 * time.Second
)

type Config struct {
	Enabled   bool
	DBPath    string
	BackupDir string
	// BatchSize samples are buffered before a write; BatchTimeout flushes a
	// partial batch.
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BackupDir:    defaultBackupDir,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "metrics batch settings must not be negative")
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
