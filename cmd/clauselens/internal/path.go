package internal

import (
	"os"
	"path/filepath"
)

// SessionDBPath returns the session database path under the data
// directory, creating the directory when needed.
func SessionDBPath(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "session.db"), nil
}
