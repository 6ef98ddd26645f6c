// Package workspace locates the repository root the QA preflight runner and
// branch manager operate against.
package workspace

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no ancestor directory looks like a workspace
// root.
var ErrNotFound = errors.New("workspace: root not found")

// Resolve walks upward from start looking for either
// packages/mcp/config/mcp-server-config.json, or a directory that contains
// both prompts/ and package.json. Returns the first matching ancestor.
func Resolve(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, "packages", "mcp", "config", "mcp-server-config.json")) {
			return dir, nil
		}
		if dirExists(filepath.Join(dir, "prompts")) && fileExists(filepath.Join(dir, "package.json")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
