package transcript

import "time"

// MessageType is the record kind of one transcript line.
type MessageType string

const (
	TypeUser      MessageType = "user"
	TypeAssistant MessageType = "assistant"
	TypeResult    MessageType = "result"
	TypeSystem    MessageType = "system"
	TypeSummary   MessageType = "summary"
)

// Valid reports whether t is one of the known record kinds.
func (t MessageType) Valid() bool {
	switch t {
	case TypeUser, TypeAssistant, TypeResult, TypeSystem, TypeSummary:
		return true
	}
	return false
}

// Usage is the token accounting Claude attaches to assistant messages.
type Usage struct {
	InputTokens              int64  `json:"input_tokens,omitempty"`
	CacheCreationInputTokens int64  `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64  `json:"cache_read_input_tokens,omitempty"`
	OutputTokens             int64  `json:"output_tokens,omitempty"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// MessageBody is the role/content pair of a record. Content is either a
// string or a slice of decoded content blocks.
type MessageBody struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
	Model   string `json:"model,omitempty"`
	ID      string `json:"id,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Message is one JSONL record. Every Message handed out by a Parser has a
// valid Type, a non-empty SessionID, Timestamp and Message.Role, and a
// non-nil Message.Content.
type Message struct {
	Type      MessageType `json:"type"`
	Message   MessageBody `json:"message"`
	Timestamp string      `json:"timestamp"`
	SessionID string      `json:"sessionId"`

	UUID          string         `json:"uuid,omitempty"`
	ParentUUID    string         `json:"parentUuid,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	UserType      string         `json:"userType,omitempty"`
	IsSidechain   *bool          `json:"isSidechain,omitempty"`
	CWD           string         `json:"cwd,omitempty"`
	Version       string         `json:"version,omitempty"`
	GitBranch     string         `json:"gitBranch,omitempty"`
	ToolUseResult map[string]any `json:"toolUseResult,omitempty"`
	IsMeta        *bool          `json:"isMeta,omitempty"`
	ToolUseID     string         `json:"toolUseID,omitempty"`
	Level         string         `json:"level,omitempty"`

	// Legacy accounting fields written by older releases.
	TokensUsed *float64 `json:"tokensUsed,omitempty"`
	CostUSD    *float64 `json:"costUsd,omitempty"`
	DurationMs *float64 `json:"durationMs,omitempty"`
	Model      string   `json:"model,omitempty"`
}

// Time parses the message timestamp. Unparseable timestamps give the zero
// time.
func (m *Message) Time() time.Time {
	return parseTimestamp(m.Timestamp)
}

// SessionMetadata is the cheap per-file summary built from the first and
// last line of a transcript plus a stat.
type SessionMetadata struct {
	SessionID           string    `json:"sessionId"`
	ProjectPath         string    `json:"projectPath"`
	StartTime           time.Time `json:"startTime"`
	LastUpdate          time.Time `json:"lastUpdate"`
	MessageCount        int       `json:"messageCount"`
	FileSize            int64     `json:"fileSize"`
	HasGitBranch        bool      `json:"hasGitBranch"`
	HasCwd              bool      `json:"hasCwd"`
	FirstMessagePreview string    `json:"firstMessagePreview"`
	LastMessagePreview  string    `json:"lastMessagePreview"`
	FilePath            string    `json:"filePath,omitempty"`
}

// TokenUsage sums Usage over a session.
type TokenUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	TotalTokens              int64 `json:"totalTokens"`
}

// UnknownValue marks a git branch or cwd that exists but was not resolved,
// as reported by sessions built from metadata alone.
const UnknownValue = "Unknown"

// Session is a conversation view, either built from every message or from
// SessionMetadata.
type Session struct {
	SessionID       string      `json:"sessionId"`
	ProjectPath     string      `json:"projectPath"`
	StartTime       time.Time   `json:"startTime"`
	LastUpdate      time.Time   `json:"lastUpdate"`
	MessageCount    int         `json:"messageCount"`
	GitBranch       string      `json:"gitBranch,omitempty"`
	CWD             string      `json:"cwd,omitempty"`
	TokenUsage      *TokenUsage `json:"tokenUsage,omitempty"`
	ServiceTiers    []string    `json:"serviceTiers,omitempty"`
	TotalTokensUsed float64     `json:"totalTokensUsed,omitempty"`
	TotalCostUSD    float64     `json:"totalCostUsd,omitempty"`
}

// ProjectData aggregates every session of one project.
type ProjectData struct {
	ProjectPath        string     `json:"projectPath"`
	EncodedPath        string     `json:"encodedPath"`
	Sessions           []Session  `json:"sessions"`
	TotalMessages      int        `json:"totalMessages"`
	FirstMessageTime   *time.Time `json:"firstMessageTime,omitempty"`
	LastMessageTime    *time.Time `json:"lastMessageTime,omitempty"`
	Branches           []string   `json:"branches"`
	WorkingDirectories []string   `json:"workingDirectories"`
}
