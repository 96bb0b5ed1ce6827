// Package version carries the build stamp of the claudelogs binary.
//
// Release builds set the variables with -ldflags, for example:
//
//	go build -ldflags "-X github.com/grovetools/claudelogs/version.Version=v0.3.0" ./cmd/claudelogs
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "none"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info is the build stamp plus the toolchain that produced the binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// GetInfo returns the stamp. Unstamped builds fall back to the VCS revision
// the Go toolchain embeds, when there is one.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit == "none" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					info.Commit = s.Value
				case "vcs.time":
					if info.BuildDate == "unknown" {
						info.BuildDate = s.Value
					}
				}
			}
		}
	}
	return info
}

// Short returns the commit abbreviated to 7 characters.
func (i Info) Short() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

func (i Info) String() string {
	var b strings.Builder
	row := func(k, v string) { fmt.Fprintf(&b, "  %-11s %s\n", k+":", v) }
	row("Commit", i.Short())
	row("Branch", i.Branch)
	row("Built", i.BuildDate)
	row("Go", i.GoVersion+" ("+i.Compiler+")")
	row("Platform", i.Platform)
	return strings.TrimRight(b.String(), "\n")
}
