// Package cache provides disk-backed string caches used to avoid repeating
// completion requests for values already answered.
package cache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Cache maps string keys to string values.
type Cache interface {
	// Get returns the cached value for key.
	Get(key string) (string, bool)
	// Put stores value under key and persists it.
	Put(key, value string) error
	// Keys lists the cached keys in sorted order.
	Keys() []string
	// Close releases the backing store.
	Close() error
}

// Backend names a persistence strategy.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open opens a cache at path. An empty backend is inferred from the file
// extension: .db, .sqlite and .sqlite3 use SQLite, anything else JSON.
func Open(backend, path string) (Cache, error) {
	if backend == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			backend = BackendSQLite
		default:
			backend = BackendJSON
		}
	}

	switch strings.ToLower(backend) {
	case BackendJSON:
		return OpenJSON(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q — supported backends: json, sqlite", backend)
	}
}
