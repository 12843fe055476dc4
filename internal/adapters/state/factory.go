package state

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by the factory.
const (
	BackendMemory = "memory"
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// New creates a store for the named backend. The json backend uses dir as
// its root; the sqlite backend uses path as its database file.
func New(backend, dir, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendJSON:
		return NewJSONStore(dir)
	case BackendSQLite:
		// Keep a .db extension so the WAL sidecar files are recognizable.
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown state backend %q (expected memory, json, or sqlite)", backend)
	}
}
