// Package paths centralizes the ~/.chatflow directory layout.
package paths

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.chatflow.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatflow")
}

// DBPath returns the history database path.
func DBPath() string {
	return filepath.Join(BaseDir(), "chatflow.db")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the application log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "chatflow.log")
}

// EnsureDirs creates the directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
