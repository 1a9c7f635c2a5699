//go:build !wasm

package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	ProfilesMerged   int
	PacketsMerged    int
	SourcesProcessed int
}

// Merge combines capture databases, e.g. from several gateway instances.
// Deduplication is handled via INSERT OR IGNORE on primary keys.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := openDB(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}

	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.ProfilesMerged += sourceStats.ProfilesMerged
		stats.PacketsMerged += sourceStats.PacketsMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := openDB(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	// Read the whole source before writing: the destination holds its only
	// connection for the transaction.
	profiles, err := readRows(sourceDB, "SELECT id, name, kind, structural_id FROM profiles", 4)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	packets, err := readRows(sourceDB,
		"SELECT id, channel, profile, seq, data, size, digest, received FROM packets", 8)
	if err != nil {
		return nil, fmt.Errorf("reading packets: %w", err)
	}

	stats := &MergeStats{}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stats.ProfilesMerged, err = insertRows(tx, `
		INSERT OR IGNORE INTO profiles (id, name, kind, structural_id) VALUES (?, ?, ?, ?)
	`, profiles)
	if err != nil {
		return nil, fmt.Errorf("merging profiles: %w", err)
	}

	stats.PacketsMerged, err = insertRows(tx, `
		INSERT OR IGNORE INTO packets (id, channel, profile, seq, data, size, digest, received)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, packets)
	if err != nil {
		return nil, fmt.Errorf("merging packets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

func readRows(db *sql.DB, query string, columns int) ([][]any, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		values := make([]any, columns)
		ptrs := make([]any, columns)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

func insertRows(tx *sql.Tx, query string, rows [][]any) (int, error) {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, values := range rows {
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, nil
}
