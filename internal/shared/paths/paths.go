package paths

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the data directory (tests, containers).
const DataDirEnv = "SPY_DATA_DIR"

// GetDataDir returns the directory holding the sqlite file and the room snapshot.
func GetDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".spy-party")
	}
	return "./data"
}

// EnsureDataDirs creates the data directory if missing.
func EnsureDataDirs() error {
	return os.MkdirAll(GetDataDir(), 0o755)
}

func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

func GetSnapshotPath() string {
	return filepath.Join(GetDataDir(), "rooms.json")
}
