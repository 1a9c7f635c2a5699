//go:build !wasm

package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createProfilesTable(db); err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	if err := createPacketsTable(db); err != nil {
		return fmt.Errorf("creating packets table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createProfilesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			structural_id TEXT NOT NULL
		)
	`)
	return err
}

func createPacketsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS packets (
			id TEXT PRIMARY KEY NOT NULL,
			channel TEXT NOT NULL,
			profile TEXT NOT NULL,
			seq INTEGER NOT NULL,
			data BLOB NOT NULL,
			size INTEGER NOT NULL,
			digest TEXT NOT NULL,
			received INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Per-channel listing and stats are ordered by sequence.
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_packets_channel_seq ON packets(channel, seq)
	`)
	return err
}
