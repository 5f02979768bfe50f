package cache

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the leg cache table. The statement is valid for both
// SQLite and PostgreSQL so the same call works for either backend.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS leg_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        distance_km REAL NOT NULL,
        duration_minutes REAL NOT NULL,
        polyline TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (origin, destination)
    );
	`

	if _, err := db.Exec(q); err != nil {
		return fmt.Errorf("init schema: create leg_cache table: %w", err)
	}

	return nil
}
