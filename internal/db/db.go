// Package db provides the SQLite connection and schema for the presence ledger.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Presence ledger - append-only run history, never read back to decide state
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS presence_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			sensor TEXT,
			bridge TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_presence_ledger_sensor_ts ON presence_ledger(sensor, timestamp);
		CREATE INDEX IF NOT EXISTS idx_presence_ledger_ts ON presence_ledger(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create presence_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
