// Package project locates the project a launch is for.
package project

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoProjectRoot is returned when no marker is found up to the filesystem root.
var ErrNoProjectRoot = errors.New("no project root found")

// Markers identify a project root, strongest first.
var Markers = []string{".mcp.json", ".claude", ".git"}

// MCPConfigFile returns the project's .mcp.json path.
func MCPConfigFile(root string) string {
	return filepath.Join(root, ".mcp.json")
}

// FindRoot walks up from dir to the nearest directory holding one of
// Markers.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, m := range Markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProjectRoot
		}
		dir = parent
	}
}

// RootOrSelf returns FindRoot(dir), or dir itself made absolute when no
// marker exists.
func RootOrSelf(dir string) string {
	if root, err := FindRoot(dir); err == nil {
		return root
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
