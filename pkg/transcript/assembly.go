package transcript

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/claudelogs/schema"
	"github.com/sirupsen/logrus"
)

const maxPreview = 100

// Assembler builds SessionMetadata and Session views out of transcript
// lines and parsed messages.
type Assembler struct {
	parser  *Parser
	session *schema.Validator
	log     *logrus.Entry
	now     func() time.Time
	newID   func() string
}

// NewAssembler compiles the session schema used to check assembled
// sessions.
func NewAssembler(parser *Parser, log *logrus.Entry) (*Assembler, error) {
	v, err := schema.NewValidator(schema.Session)
	if err != nil {
		return nil, fmt.Errorf("loading session schema: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &Assembler{
		parser:  parser,
		session: v,
		log:     log,
		now:     time.Now,
	}
	a.newID = a.fallbackSessionID
	return a, nil
}

// CreateSessionMetadataFromLines builds metadata from the first and last
// non-empty line of a transcript. When either line fails to parse it falls
// back to regex extraction over the raw text, and returns nil only when no
// line even looks like JSON.
func (a *Assembler) CreateSessionMetadataFromLines(projectPath, first, last string, lineCount int, fileSize int64) *SessionMetadata {
	var firstMsg, lastMsg *Message
	if first != "" {
		firstMsg = a.parser.ParseLine(first)
	}
	if last != "" {
		lastMsg = a.parser.ParseLine(last)
	}

	if firstMsg == nil || lastMsg == nil {
		return a.createMinimalMetadata(projectPath, []string{first, last}, lineCount, fileSize)
	}

	return &SessionMetadata{
		SessionID:           firstMsg.SessionID,
		ProjectPath:         projectPath,
		StartTime:           firstMsg.Time(),
		LastUpdate:          lastMsg.Time(),
		MessageCount:        lineCount,
		FileSize:            fileSize,
		HasGitBranch:        firstMsg.GitBranch != "" || lastMsg.GitBranch != "",
		HasCwd:              firstMsg.CWD != "" || lastMsg.CWD != "",
		FirstMessagePreview: Preview(firstMsg.Message.Content),
		LastMessagePreview:  Preview(lastMsg.Message.Content),
	}
}

// createMinimalMetadata uses the first candidate line that superficially
// looks like a JSON object.
func (a *Assembler) createMinimalMetadata(projectPath string, lines []string, lineCount int, fileSize int64) *SessionMetadata {
	for _, line := range lines {
		if !hasJSONStructure(line) {
			continue
		}

		sessionID := firstSubmatch(sessionIDRegex, line)
		if sessionID == "" {
			sessionID = a.newID()
		}
		ts := parseTimestamp(firstSubmatch(timestampRegex, line))
		if ts.IsZero() {
			ts = a.now()
		}

		a.log.WithFields(logrus.Fields{
			"project":    projectPath,
			"session_id": sessionID,
		}).Debug("Built minimal session metadata from raw line")

		return &SessionMetadata{
			SessionID:    sessionID,
			ProjectPath:  projectPath,
			StartTime:    ts,
			LastUpdate:   ts,
			MessageCount: lineCount,
			FileSize:     fileSize,
			HasGitBranch: gitBranchRegex.MatchString(line),
			HasCwd:       cwdRegex.MatchString(line),
		}
	}
	return nil
}

func hasJSONStructure(line string) bool {
	return strings.Contains(line, "{") && strings.Contains(line, "}") && strings.Contains(line, `"`)
}

func (a *Assembler) fallbackSessionID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("session_%d_%s", a.now().UnixMilli(), random)
}

// CreateSessionFromMessages builds a full session view. msgs must be in
// chronological order. It returns nil for an empty slice or when the result
// does not satisfy the session schema.
func (a *Assembler) CreateSessionFromMessages(sessionID, projectPath string, msgs []Message) *Session {
	if len(msgs) == 0 {
		return nil
	}

	s := &Session{
		SessionID:    sessionID,
		ProjectPath:  projectPath,
		StartTime:    msgs[0].Time(),
		LastUpdate:   msgs[len(msgs)-1].Time(),
		MessageCount: len(msgs),
	}

	for i := len(msgs) - 1; i >= 0; i-- {
		if s.GitBranch == "" && msgs[i].GitBranch != "" {
			s.GitBranch = msgs[i].GitBranch
		}
		if s.CWD == "" && msgs[i].CWD != "" {
			s.CWD = msgs[i].CWD
		}
		if s.GitBranch != "" && s.CWD != "" {
			break
		}
	}

	var usage TokenUsage
	sawUsage := false
	tiers := map[string]struct{}{}
	for _, m := range msgs {
		if u := m.Message.Usage; u != nil {
			sawUsage = true
			usage.InputTokens += u.InputTokens
			usage.CacheCreationInputTokens += u.CacheCreationInputTokens
			usage.CacheReadInputTokens += u.CacheReadInputTokens
			usage.OutputTokens += u.OutputTokens
			if u.ServiceTier != "" {
				tiers[u.ServiceTier] = struct{}{}
			}
		}
		if m.TokensUsed != nil {
			s.TotalTokensUsed += *m.TokensUsed
		}
		if m.CostUSD != nil {
			s.TotalCostUSD += *m.CostUSD
		}
	}
	if sawUsage {
		usage.TotalTokens = usage.InputTokens + usage.CacheCreationInputTokens +
			usage.CacheReadInputTokens + usage.OutputTokens
		s.TokenUsage = &usage
	}
	for tier := range tiers {
		s.ServiceTiers = append(s.ServiceTiers, tier)
	}
	sort.Strings(s.ServiceTiers)

	if err := a.session.Validate(s); err != nil {
		a.log.WithError(err).WithField("session_id", sessionID).Warn("Assembled session failed validation")
		return nil
	}
	return s
}

// CreateSessionFromMetadata converts metadata without reading any messages.
// Branch and cwd are reported as UnknownValue when the metadata saw them.
func CreateSessionFromMetadata(meta SessionMetadata) Session {
	s := Session{
		SessionID:    meta.SessionID,
		ProjectPath:  meta.ProjectPath,
		StartTime:    meta.StartTime,
		LastUpdate:   meta.LastUpdate,
		MessageCount: meta.MessageCount,
	}
	if meta.HasGitBranch {
		s.GitBranch = UnknownValue
	}
	if meta.HasCwd {
		s.CWD = UnknownValue
	}
	return s
}

// Preview renders message content as a single line of at most 100
// characters.
func Preview(content any) string {
	var text string
	switch c := content.(type) {
	case string:
		text = c
	case []any:
		text = blockText(c)
	case nil:
		return ""
	default:
		text = optString(c)
	}

	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxPreview {
		return string(runes[:maxPreview-3]) + "..."
	}
	return text
}

// blockText joins the text of every text block. Content without any text
// is summarized by its block count.
func blockText(blocks []any) string {
	var parts []string
	for _, b := range blocks {
		switch block := b.(type) {
		case string:
			parts = append(parts, block)
		case map[string]any:
			if t, ok := block["text"].(string); ok && t != "" {
				parts = append(parts, t)
			}
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if len(blocks) == 1 {
		return "[1 content block]"
	}
	return fmt.Sprintf("[%d content blocks]", len(blocks))
}
