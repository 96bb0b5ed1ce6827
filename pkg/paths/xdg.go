// Package paths resolves claudelogs' own directories.
//
// Resolution order:
// 1. CLAUDELOGS_HOME (portable root) → $CLAUDELOGS_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/claudelogs
// 3. Platform defaults → ~/.config/claudelogs, ~/.local/state/claudelogs, etc.
//
// These are the tool's directories, not Claude Code's. See pkg/claudepath for
// the transcript store.
package paths

import (
	"os"
	"path/filepath"
)

const (
	appName = "claudelogs"
	homeEnv = "CLAUDELOGS_HOME"
)

// baseDir applies the resolution order for one XDG category.
func baseDir(portable, xdgEnv string, fallback ...string) string {
	if home := os.Getenv(homeEnv); home != "" {
		return filepath.Join(home, portable)
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
}

// ConfigDir returns the claudelogs configuration directory.
// Used for config.yml / config.toml.
func ConfigDir() string {
	return baseDir("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the claudelogs state directory.
// Used for log files.
func StateDir() string {
	return baseDir("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the claudelogs cache directory.
func CacheDir() string {
	return baseDir("cache", "XDG_CACHE_HOME", ".cache")
}

// LogDir returns the directory rotated log files are written to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// EnsureDirs creates all claudelogs directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
