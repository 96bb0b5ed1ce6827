// Package claudepath locates Claude Code's configuration directory and maps
// project paths to the encoded directory names under <configDir>/projects.
//
// The encoding replaces every path separator with "-". Decoding is a
// best-effort inverse: hyphens that were part of the original path come back
// as separators.
package claudepath

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
)

// ProjectsDirName is the directory under the config dir holding one folder
// per encoded project path.
const ProjectsDirName = "projects"

var windowsDriveRegex = regexp.MustCompile(`^([A-Za-z])--(.*)$`)

// ConfigDir returns Claude Code's configuration directory for the running
// platform. The directory may not exist.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return ResolveConfigDir(runtime.GOOS, home, os.Getenv("APPDATA"), dirExists)
}

// ResolveConfigDir is the platform switch behind ConfigDir.
func ResolveConfigDir(goos, home, appData string, exists func(string) bool) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, ".claude")
	case "linux":
		xdg := filepath.Join(home, ".config", "claude")
		if exists != nil && exists(xdg) {
			return xdg
		}
		return filepath.Join(home, ".claude")
	case "windows":
		return filepath.Join(appData, "Claude")
	default:
		return filepath.Join(home, ".claude")
	}
}

// ProjectsDir returns <configDir>/projects.
func ProjectsDir(configDir string) string {
	return filepath.Join(configDir, ProjectsDirName)
}

// ProjectDir returns the encoded directory for projectPath. An already
// encoded name is returned unchanged.
func ProjectDir(configDir, projectPath string) string {
	return filepath.Join(ProjectsDir(configDir), EncodePath(projectPath))
}

// EncodePath replaces every "/" and "\" with "-".
func EncodePath(p string) string {
	return strings.NewReplacer("/", "-", `\`, "-").Replace(p)
}

// DecodePath reverses EncodePath as far as possible. A leading drive letter
// ("C--Users-me") decodes to a Windows path, everything else to a slash
// path.
func DecodePath(encoded string) string {
	if m := windowsDriveRegex.FindStringSubmatch(encoded); m != nil {
		return m[1] + `:\` + strings.ReplaceAll(m[2], "-", `\`)
	}
	return strings.ReplaceAll(encoded, "-", "/")
}

// ListProjects returns the encoded project directory names, sorted. A
// missing projects directory is not an error.
func ListProjects(configDir string) ([]string, error) {
	entries, err := os.ReadDir(ProjectsDir(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	projects := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// FindProjectByPath returns the encoded directory name for target: an exact
// encoded match first, otherwise the first directory whose decoded path ends
// with target or is a suffix of target. It returns "" when nothing matches.
func FindProjectByPath(configDir, target string) string {
	if target == "" {
		return ""
	}
	projects, err := ListProjects(configDir)
	if err != nil {
		return ""
	}

	encoded := EncodePath(target)
	for _, name := range projects {
		if name == encoded {
			return name
		}
	}

	for _, name := range projects {
		decoded := DecodePath(name)
		if strings.HasSuffix(decoded, target) || strings.HasSuffix(target, decoded) {
			return name
		}
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
