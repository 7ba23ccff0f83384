package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const dsnFormat = "file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// Open opens the SQLite database at path and makes sure the reference
// tables exist.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf(dsnFormat, path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply reference schema: %w", err)
	}
	return db, nil
}
