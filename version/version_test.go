package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestShortAndString(t *testing.T) {
	info := Info{Commit: "0123456789abcdef", Branch: "main", BuildDate: "2025-06-01", GoVersion: "go1.24.4", Compiler: "gc", Platform: "linux/amd64"}
	assert.Equal(t, "0123456", info.Short())
	assert.Equal(t, "none", Info{Commit: "none"}.Short())

	lines := strings.Split(info.String(), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, "  Commit:     0123456", lines[0])
	assert.Contains(t, lines[3], "go1.24.4 (gc)")
}
