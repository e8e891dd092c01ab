package metrics

import (
	"database/sql"
	stderrors "errors"

	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id                INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp         INTEGER NOT NULL,
	       cartridge_temp_set REAL NOT NULL,
	       cartridge_temp_act REAL NOT NULL,
	       ring_temp_set     REAL NOT NULL,
	       ring_temp_act     REAL NOT NULL,
	       pressure_set      REAL NOT NULL,
	       pressure_act      REAL NOT NULL,
	       high_voltage_set  REAL NOT NULL,
	       high_voltage_act  REAL NOT NULL,
	       speed             REAL NOT NULL,
	       trigger_connected INTEGER NOT NULL CHECK (trigger_connected IN (0, 1)),
	       trigger_frequency REAL NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS camera_samples (
	       sample_id         INTEGER NOT NULL REFERENCES samples(id),
	       name              TEXT NOT NULL,
	       serial            TEXT NOT NULL,
	       connected         INTEGER NOT NULL CHECK (connected IN (0, 1)),
	       grabbing          INTEGER NOT NULL CHECK (grabbing IN (0, 1)),
	       framerate         REAL NOT NULL,
	       temperature       REAL,
	       temperature_state TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS samples_timestamp ON samples(timestamp);`

	insertSampleSQL = `
    INSERT INTO samples (
        timestamp,
        cartridge_temp_set, cartridge_temp_act,
        ring_temp_set, ring_temp_act,
        pressure_set, pressure_act,
        high_voltage_set, high_voltage_act,
        speed,
        trigger_connected, trigger_frequency
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertCameraSampleSQL = `
    INSERT INTO camera_samples (
        sample_id, name, serial, connected, grabbing,
        framerate, temperature, temperature_state
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

var managedTables = []string{"camera_samples", "samples", "schema_versions"}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}
