// Package util provides shared utility functions.
package util

import (
	"fmt"
	"os"
	"os/exec"
)

// playerFallbacks are tried in order when no player is configured.
var playerFallbacks = []string{"mpv", "vlc", "ffplay"}

// FindBinary searches for an executable binary by name.
// Search order:
//  1. Environment variable (if envVar is non-empty and set)
//  2. ./name (current directory, useful for development)
//  3. name on PATH (via exec.LookPath)
//
// Each candidate is verified to exist and be executable before being
// returned.
func FindBinary(name string, envVar string) (string, error) {
	if envVar != "" {
		if envPath := os.Getenv(envVar); envPath != "" && isExecutable(envPath) {
			return envPath, nil
		}
	}

	if localPath := "./" + name; isExecutable(localPath) {
		return localPath, nil
	}

	// LookPath already verifies executability.
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// FindPlayer resolves the media player binary. The configured name wins,
// then the TVDECK_PLAYER environment variable, then a list of common
// players found on PATH.
func FindPlayer(configured string) (string, error) {
	if configured != "" {
		return FindBinary(configured, "TVDECK_PLAYER")
	}
	if path, err := FindBinary("", "TVDECK_PLAYER"); err == nil && path != "" {
		return path, nil
	}
	for _, name := range playerFallbacks {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no media player found (tried %v)", playerFallbacks)
}

// isExecutable reports whether path is a regular file with an executable
// bit set for anyone.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
