package medium

import (
	"fmt"
	"path/filepath"
)

// New creates a Medium based on the backend name.
//
// Supported backends:
//
//	"file"        - one file per key in dataDir (default)
//	"sqlite"      - SQLite database at dataDir/mockdb.db (cgo driver)
//	"sqlite-pure" - same database through the pure Go driver
//	"memory"      - in-memory (ephemeral, for testing)
func New(backend, dataDir string) (Medium, error) {
	switch backend {
	case "file", "":
		return NewFileMedium(dataDir)
	case "sqlite":
		return NewSqliteMedium(DriverCgo, filepath.Join(dataDir, "mockdb.db"))
	case "sqlite-pure":
		return NewSqliteMedium(DriverPure, filepath.Join(dataDir, "mockdb.db"))
	case "memory":
		return NewMemoryMedium(), nil
	default:
		return nil, fmt.Errorf("unknown medium backend: %q (supported: file, sqlite, sqlite-pure, memory)", backend)
	}
}
