package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirEnv overrides the data directory.
const DataDirEnv = "CS_DATA_DIR"

// GetDataDir returns the directory holding ConnectSphere client state
// (config, token file, debug log).
func GetDataDir() (string, error) {
	if dataDir := os.Getenv(DataDirEnv); dataDir != "" {
		return dataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getDataDir: could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".connectsphere"), nil
}

// TokenPath is the file fallback for the session token.
func TokenPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.token"), nil
}
