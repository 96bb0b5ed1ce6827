// Package pathutil normalizes user-supplied paths before they are encoded
// into Claude Code project directory names.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Expand resolves a leading "~", environment variables and relative
// segments. It returns an absolute path.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// CanonicalPath returns the absolute path with symlinks resolved and, on
// case-insensitive systems, each component spelled the way the filesystem
// stores it. Claude Code names project directories after that spelling.
// Components that do not exist are kept as given.
func CanonicalPath(path string) (string, error) {
	return canonicalPath(path, runtime.GOOS)
}

func canonicalPath(path, goos string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}
	if goos != "darwin" && goos != "windows" {
		return resolved, nil
	}

	volume := filepath.VolumeName(resolved)
	rest := strings.TrimPrefix(resolved[len(volume):], string(filepath.Separator))
	result := volume + string(filepath.Separator)
	for _, part := range strings.Split(rest, string(filepath.Separator)) {
		if part == "" {
			continue
		}
		result = filepath.Join(result, matchCase(result, part))
	}
	return result, nil
}

// matchCase returns the entry of dir equal to name ignoring case, or name.
func matchCase(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return name
	}
	for _, e := range entries {
		if e.Name() == name {
			return name
		}
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name(), name) {
			return e.Name()
		}
	}
	return name
}
