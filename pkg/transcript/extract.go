package transcript

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// MalformedContent replaces the content of lines that are not JSON.
	MalformedContent = "[Malformed message data]"
	// UnknownSessionID is used when no session id can be recovered.
	UnknownSessionID = "unknown"

	maxSalvagedContent = 1000
	isoMillis          = "2006-01-02T15:04:05.000Z07:00"
)

var (
	sessionIDRegex = regexp.MustCompile(`"sessionId"\s*:\s*"([^"]+)"`)
	timestampRegex = regexp.MustCompile(`"timestamp"\s*:\s*"([^"]+)"`)
	gitBranchRegex = regexp.MustCompile(`"gitBranch"\s*:\s*"([^"]*)"`)
	cwdRegex       = regexp.MustCompile(`"cwd"\s*:\s*"([^"]*)"`)
)

// rawField lists the alternate key paths a field has been written under,
// most specific first.
type rawField []string

var (
	rawSessionID = rawField{"sessionId", "session_id", "sessionID"}
	rawTimestamp = rawField{"timestamp", "time", "created_at", "createdAt", "date"}
	rawContent   = rawField{"message.content", "content", "text", "message"}
	rawCWD       = rawField{"cwd", "working_directory", "workingDirectory"}
	rawGitBranch = rawField{"gitBranch", "git_branch", "branch"}
)

// lookup returns the first present, non-null value among the field's paths.
func (f rawField) lookup(doc gjson.Result) (gjson.Result, bool) {
	for _, path := range f {
		v := doc.Get(path)
		if v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// lookupString renders the first present value as a string. Strings are
// returned verbatim, everything else as raw JSON.
func (f rawField) lookupString(doc gjson.Result) string {
	v, ok := f.lookup(doc)
	if !ok {
		return ""
	}
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}

// extractRawSessionInfo builds a minimal assistant message out of any JSON
// object, trying each alternate key name in turn. Non-object documents give
// nil.
func extractRawSessionInfo(raw []byte, now time.Time) *Message {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil
	}

	msg := &Message{
		Type:      TypeAssistant,
		SessionID: rawSessionID.lookupString(doc),
		Timestamp: rawTimestamp.lookupString(doc),
		CWD:       rawCWD.lookupString(doc),
		GitBranch: rawGitBranch.lookupString(doc),
		Message: MessageBody{
			Role:    string(TypeAssistant),
			Content: truncateRunes(rawContent.lookupString(doc), maxSalvagedContent),
		},
	}
	if msg.SessionID == "" {
		msg.SessionID = UnknownSessionID
	}
	if msg.Timestamp == "" {
		msg.Timestamp = now.UTC().Format(isoMillis)
	}
	return msg
}

// salvageMalformed recovers what it can from a line that is not valid JSON.
// Lines without a session id and without a timestamp give nil.
func salvageMalformed(line string, now time.Time) *Message {
	sessionID := firstSubmatch(sessionIDRegex, line)
	timestamp := firstSubmatch(timestampRegex, line)
	if sessionID == "" && timestamp == "" {
		return nil
	}

	msg := &Message{
		Type:      TypeAssistant,
		SessionID: sessionID,
		Timestamp: timestamp,
		GitBranch: firstSubmatch(gitBranchRegex, line),
		CWD:       firstSubmatch(cwdRegex, line),
		Message: MessageBody{
			Role:    string(TypeAssistant),
			Content: MalformedContent,
		},
	}
	if msg.SessionID == "" {
		msg.SessionID = UnknownSessionID
	}
	if msg.Timestamp == "" {
		msg.Timestamp = now.UTC().Format(isoMillis)
	}
	return msg
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// parseTimestamp accepts RFC 3339 strings and epoch milliseconds. Anything
// else gives the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
