package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/stretchr/testify/require"
)

// ClaudeHome is a throwaway Claude Code configuration directory.
type ClaudeHome struct {
	t   *testing.T
	Dir string
}

// NewClaudeHome creates an empty configuration directory with a projects
// folder under t.TempDir().
func NewClaudeHome(t *testing.T) *ClaudeHome {
	t.Helper()

	dir := filepath.Join(t.TempDir(), ".claude")
	require.NoError(t, os.MkdirAll(claudepath.ProjectsDir(dir), 0o755))
	return &ClaudeHome{t: t, Dir: dir}
}

// ProjectDir returns the encoded directory of projectPath, creating it.
func (h *ClaudeHome) ProjectDir(projectPath string) string {
	h.t.Helper()

	dir := claudepath.ProjectDir(h.Dir, projectPath)
	require.NoError(h.t, os.MkdirAll(dir, 0o755))
	return dir
}

// WriteSession writes lines as name.jsonl into the project and returns the
// file path.
func (h *ClaudeHome) WriteSession(projectPath, name string, lines ...string) string {
	h.t.Helper()

	path := filepath.Join(h.ProjectDir(projectPath), name+".jsonl")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// AppendLines appends lines to an existing transcript.
func AppendLines(t *testing.T, path string, lines ...string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
}

// TS formats epoch milliseconds the way Claude Code writes timestamps.
func TS(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Line marshals fields into one JSONL record.
func Line(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// UserLine is a well-formed user record.
func UserLine(sessionID string, tsMillis int64, content string) string {
	return Line(map[string]any{
		"type":      "user",
		"sessionId": sessionID,
		"timestamp": TS(tsMillis),
		"uuid":      RandomString(12),
		"message":   map[string]any{"role": "user", "content": content},
	})
}

// AssistantLine is a well-formed assistant record. usage may be nil.
func AssistantLine(sessionID string, tsMillis int64, content string, usage map[string]any) string {
	body := map[string]any{
		"role":    "assistant",
		"content": []any{map[string]any{"type": "text", "text": content}},
		"model":   "claude-sonnet-4-5",
	}
	if usage != nil {
		body["usage"] = usage
	}
	return Line(map[string]any{
		"type":      "assistant",
		"sessionId": sessionID,
		"timestamp": TS(tsMillis),
		"uuid":      RandomString(12),
		"message":   body,
	})
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}
