package transcript

import (
	"testing"
	"time"

	"github.com/grovetools/claudelogs/logging"
	"github.com/grovetools/claudelogs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(logging.Discard())
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

// requireInvariant checks the guarantees every parsed message carries.
func requireInvariant(t *testing.T, msg *Message) {
	t.Helper()
	require.NotNil(t, msg)
	assert.True(t, msg.Type.Valid(), "type %q", msg.Type)
	assert.NotEmpty(t, msg.SessionID)
	assert.NotEmpty(t, msg.Timestamp)
	assert.NotEmpty(t, msg.Message.Role)
	assert.NotNil(t, msg.Message.Content)
}

func TestParseLineStrict(t *testing.T) {
	p := newTestParser(t)

	line := `{"type":"assistant","sessionId":"s1","timestamp":"2024-01-01T00:00:00.000Z","uuid":"u1","parentUuid":null,"isSidechain":false,"gitBranch":"main","cwd":"/work","message":{"role":"assistant","model":"claude","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":10,"output_tokens":5,"service_tier":"standard"}}}`
	msg := p.ParseLine(line)
	requireInvariant(t, msg)

	assert.Equal(t, TypeAssistant, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "main", msg.GitBranch)
	assert.Equal(t, "/work", msg.CWD)
	require.NotNil(t, msg.IsSidechain)
	assert.False(t, *msg.IsSidechain)
	require.NotNil(t, msg.Message.Usage)
	assert.Equal(t, int64(10), msg.Message.Usage.InputTokens)
	assert.Equal(t, "standard", msg.Message.Usage.ServiceTier)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), msg.Time().UTC())

	assert.Equal(t, int64(1), p.Stats().Strict)
}

func TestParseLineLenient(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name  string
		line  string
		check func(t *testing.T, msg *Message)
	}{
		{
			name: "unknown type falls back to assistant",
			line: `{"type":"Tool","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","message":{"role":"user","content":"x"}}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, TypeAssistant, msg.Type)
			},
		},
		{
			name: "type is lower-cased",
			line: `{"type":"USER","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","message":{"role":"user","content":"x"},"toolUseResult":"oops"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, TypeUser, msg.Type)
			},
		},
		{
			name: "non-string type",
			line: `{"type":7,"sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","content":"x"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, TypeAssistant, msg.Type)
			},
		},
		{
			name: "numeric session id and timestamp",
			line: `{"type":"user","sessionId":42,"timestamp":1704067200000,"message":{"role":"user","content":"x"}}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, "42", msg.SessionID)
				assert.Equal(t, "1704067200000", msg.Timestamp)
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), msg.Time())
			},
		},
		{
			name: "string tool result that is JSON",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","message":{"role":"user","content":"x"},"toolUseResult":"{\"stdout\":\"ok\"}"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, map[string]any{"stdout": "ok"}, msg.ToolUseResult)
			},
		},
		{
			name: "plain string tool result",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","message":{"role":"user","content":"x"},"toolUseResult":"Error: boom"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, map[string]any{"data": "Error: boom"}, msg.ToolUseResult)
			},
		},
		{
			name: "array tool result",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","message":{"role":"user","content":"x"},"toolUseResult":[1,2]}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, map[string]any{"items": []any{float64(1), float64(2)}}, msg.ToolUseResult)
			},
		},
		{
			name: "string booleans",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","message":{"role":"user","content":"x"},"isSidechain":"1","isMeta":"false"}`,
			check: func(t *testing.T, msg *Message) {
				require.NotNil(t, msg.IsSidechain)
				require.NotNil(t, msg.IsMeta)
				assert.True(t, *msg.IsSidechain)
				assert.False(t, *msg.IsMeta)
			},
		},
		{
			name: "top-level content without message",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","content":"hello"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, "user", msg.Message.Role)
				assert.Equal(t, "hello", msg.Message.Content)
			},
		},
		{
			name: "message is a string",
			line: `{"type":"user","sessionId":"s1","timestamp":"t","message":"hello"}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, "assistant", msg.Message.Role)
				assert.Equal(t, "hello", msg.Message.Content)
			},
		},
		{
			name: "numeric scalars become strings",
			line: `{"type":"system","sessionId":"s1","timestamp":"t","content":"x","version":1.5,"cwd":{"a":1}}`,
			check: func(t *testing.T, msg *Message) {
				assert.Equal(t, "1.5", msg.Version)
				assert.Equal(t, `{"a":1}`, msg.CWD)
			},
		},
		{
			name: "legacy accounting as strings",
			line: `{"type":"result","sessionId":"s1","timestamp":"t","content":"done","costUsd":"0.25","tokensUsed":100}`,
			check: func(t *testing.T, msg *Message) {
				require.NotNil(t, msg.CostUSD)
				require.NotNil(t, msg.TokensUsed)
				assert.Equal(t, 0.25, *msg.CostUSD)
				assert.Equal(t, 100.0, *msg.TokensUsed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := p.ParseLine(tt.line)
			requireInvariant(t, msg)
			tt.check(t, msg)
		})
	}
	assert.Equal(t, int64(len(tests)), p.Stats().Lenient)
}

func TestParseLineRaw(t *testing.T) {
	p := newTestParser(t)

	msg := p.ParseLine(`{"session_id":"abc","created_at":"2024-02-01T00:00:00Z","text":"hello","working_directory":"/w","branch":"dev"}`)
	requireInvariant(t, msg)
	assert.Equal(t, TypeAssistant, msg.Type)
	assert.Equal(t, "abc", msg.SessionID)
	assert.Equal(t, "2024-02-01T00:00:00Z", msg.Timestamp)
	assert.Equal(t, "hello", msg.Message.Content)
	assert.Equal(t, "/w", msg.CWD)
	assert.Equal(t, "dev", msg.GitBranch)

	msg = p.ParseLine(`{"foo":"bar"}`)
	requireInvariant(t, msg)
	assert.Equal(t, UnknownSessionID, msg.SessionID)
	assert.Equal(t, "2025-01-02T03:04:05.000Z", msg.Timestamp)
	assert.Equal(t, "", msg.Message.Content)

	long := make([]rune, 1500)
	for i := range long {
		long[i] = 'é'
	}
	msg = p.ParseLine(testutil.Line(map[string]any{"content": string(long)}))
	requireInvariant(t, msg)
	assert.Len(t, []rune(msg.Message.Content.(string)), 1000)

	assert.Equal(t, int64(3), p.Stats().Raw)
}

func TestParseLineSalvage(t *testing.T) {
	p := newTestParser(t)

	msg := p.ParseLine(`{"type":"user","sessionId":"s9","timestamp":"2024-01-01T00:00:00Z","gitBranch":"main","message":{"content":"trunc`)
	requireInvariant(t, msg)
	assert.Equal(t, "s9", msg.SessionID)
	assert.Equal(t, "2024-01-01T00:00:00Z", msg.Timestamp)
	assert.Equal(t, "main", msg.GitBranch)
	assert.Equal(t, MalformedContent, msg.Message.Content)

	msg = p.ParseLine(`garbage "timestamp": "2024-01-01T00:00:00Z"`)
	requireInvariant(t, msg)
	assert.Equal(t, UnknownSessionID, msg.SessionID)

	assert.Nil(t, p.ParseLine(`{not json`))
	assert.Equal(t, int64(2), p.Stats().Salvaged)
	assert.Equal(t, int64(1), p.Stats().Dropped)
}

func TestParseLineTotality(t *testing.T) {
	p := newTestParser(t)

	inputs := []string{
		"",
		"   ",
		"null",
		"42",
		`"just a string"`,
		"[1,2,3]",
		"{}",
		"{",
		"}{",
		`{"sessionId":null,"timestamp":null}`,
		`{"message":{"content":{"nested":[1,{"x":null}]}}}`,
		`{"type":["user"],"sessionId":"s","timestamp":"t"}`,
		"\x00\x01\x02",
		`{"sessionId":"` + string([]byte{0xff, 0xfe}) + `"}`,
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			if msg := p.ParseLine(in); msg != nil {
				requireInvariant(t, msg)
			}
		}, "input %q", in)
	}
}
