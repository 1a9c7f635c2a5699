//go:build wasm

package store

// New returns the memory backend for every path; browser builds have no
// database file.
func New(cfg Config) (Store, error) {
	return NewMemory(), nil
}
