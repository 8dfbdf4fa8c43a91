package telemetry

import (
	"database/sql"

	"github.com/virtmem/memctl/internal/errors"
)

// initSchema initializes the database schema for sample telemetry. Field
// values are stored as nullable REALs: a NULL row records an optional
// field no collector produced that cycle.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS samples (
            timestamp INTEGER NOT NULL,
            monitor   TEXT NOT NULL,
            field     TEXT NOT NULL,
            value     REAL,
            PRIMARY KEY (timestamp, monitor, field)
        )
    `)
	if err != nil {
		return errors.New().Wrap(ErrStorageInit, err)
	}

	return nil
}
