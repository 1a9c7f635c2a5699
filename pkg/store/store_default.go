//go:build !wasm

package store

import "fmt"

// New creates a store for native builds.
// ":memory:" returns a MemoryStore; any other path opens a SQLite database.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}

	return NewSQLite(cfg.Path)
}
