// Package kv provides string-keyed slot storage for the history store,
// with an in-memory backend for tests and a SQLite backend for production.
package kv

// Backend is a single-writer string-keyed slot store.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set writes the value for key, replacing any previous value.
	Set(key, value string) error
	// Delete removes the key. Absent keys are a no-op.
	Delete(key string) error
	// Close releases backend resources.
	Close() error
}
