package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/grovetools/claudelogs/pkg/transcript"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewStyledTable creates a bordered table with the default theme.
func NewStyledTable(headers ...string) *ltable.Table {
	t := DefaultTheme
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Muted)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return t.TableHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// relTime renders t relative to now; the zero time renders as "-".
func relTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// RenderMetadata writes a table of session metadata.
func RenderMetadata(w io.Writer, items []transcript.SessionMetadata) {
	if len(items) == 0 {
		fmt.Fprintln(w, DefaultTheme.Muted.Render("No sessions found."))
		return
	}
	previewWidth := max(TerminalWidth()-60, 20)
	tbl := NewStyledTable("SESSION", "UPDATED", "MSGS", "SIZE", "PREVIEW")
	for _, m := range items {
		tbl.Row(
			DefaultTheme.ID.Render(shortID(m.SessionID)),
			relTime(m.LastUpdate),
			humanize.Comma(int64(m.MessageCount)),
			humanize.Bytes(uint64(max(m.FileSize, 0))),
			truncate(m.FirstMessagePreview, previewWidth),
		)
	}
	fmt.Fprintln(w, tbl.Render())
}

// RenderSessions writes a table of sessions.
func RenderSessions(w io.Writer, sessions []transcript.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DefaultTheme.Muted.Render("No sessions found."))
		return
	}
	tbl := NewStyledTable("SESSION", "STARTED", "UPDATED", "MSGS", "BRANCH", "TOKENS")
	for _, s := range sessions {
		tokens := "-"
		if s.TokenUsage != nil {
			tokens = humanize.Comma(s.TokenUsage.TotalTokens)
		}
		tbl.Row(
			DefaultTheme.ID.Render(shortID(s.SessionID)),
			relTime(s.StartTime),
			relTime(s.LastUpdate),
			humanize.Comma(int64(s.MessageCount)),
			orDash(s.GitBranch),
			tokens,
		)
	}
	fmt.Fprintln(w, tbl.Render())
}

// RenderSession writes the details of one session.
func RenderSession(w io.Writer, s *transcript.Session) {
	t := DefaultTheme
	field := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", t.Bold.Render(fmt.Sprintf("%-14s", label)), value)
	}

	fmt.Fprintln(w, t.Header.Render("Session "+s.SessionID))
	field("Project", s.ProjectPath)
	field("Started", fmt.Sprintf("%s (%s)", s.StartTime.Local().Format(time.DateTime), relTime(s.StartTime)))
	field("Last update", fmt.Sprintf("%s (%s)", s.LastUpdate.Local().Format(time.DateTime), relTime(s.LastUpdate)))
	field("Duration", s.LastUpdate.Sub(s.StartTime).Round(time.Second).String())
	field("Messages", humanize.Comma(int64(s.MessageCount)))
	field("Branch", orDash(s.GitBranch))
	field("Directory", orDash(s.CWD))
	if u := s.TokenUsage; u != nil {
		field("Tokens", fmt.Sprintf("%s total (in %s, out %s, cache write %s, cache read %s)",
			humanize.Comma(u.TotalTokens), humanize.Comma(u.InputTokens), humanize.Comma(u.OutputTokens),
			humanize.Comma(u.CacheCreationInputTokens), humanize.Comma(u.CacheReadInputTokens)))
	}
	if len(s.ServiceTiers) > 0 {
		field("Service tiers", strings.Join(s.ServiceTiers, ", "))
	}
	if s.TotalCostUSD > 0 {
		field("Cost", "$"+strconv.FormatFloat(s.TotalCostUSD, 'f', 4, 64))
	}
}

// RenderMessages writes one line per message.
func RenderMessages(w io.Writer, msgs []transcript.Message) {
	t := DefaultTheme
	width := max(TerminalWidth()-32, 20)
	for i := range msgs {
		m := &msgs[i]
		role := lipgloss.NewStyle().Foreground(roleColor(m.Type)).Render(fmt.Sprintf("%-9s", m.Type))
		fmt.Fprintf(w, "%s %s %s\n",
			t.Muted.Render(m.Time().Local().Format(time.TimeOnly)),
			role,
			truncate(transcript.Preview(m.Message.Content), width))
	}
}

// RenderProjectData writes the aggregate view of a project.
func RenderProjectData(w io.Writer, data *transcript.ProjectData) {
	t := DefaultTheme
	fmt.Fprintln(w, t.Header.Render(data.ProjectPath))
	fmt.Fprintf(w, "  %s %s\n", t.Bold.Render("Encoded      "), data.EncodedPath)
	fmt.Fprintf(w, "  %s %d\n", t.Bold.Render("Sessions     "), len(data.Sessions))
	fmt.Fprintf(w, "  %s %s\n", t.Bold.Render("Messages     "), humanize.Comma(int64(data.TotalMessages)))
	if data.FirstMessageTime != nil && data.LastMessageTime != nil {
		fmt.Fprintf(w, "  %s %s .. %s\n", t.Bold.Render("Active       "),
			data.FirstMessageTime.Local().Format(time.DateOnly), data.LastMessageTime.Local().Format(time.DateOnly))
	}
	if len(data.Branches) > 0 {
		fmt.Fprintf(w, "  %s %s\n", t.Bold.Render("Branches     "), strings.Join(data.Branches, ", "))
	}
	if len(data.WorkingDirectories) > 0 {
		fmt.Fprintf(w, "  %s %s\n", t.Bold.Render("Directories  "), strings.Join(data.WorkingDirectories, ", "))
	}
	if len(data.Sessions) > 0 {
		fmt.Fprintln(w)
		RenderSessions(w, data.Sessions)
	}
}

func roleColor(t transcript.MessageType) lipgloss.TerminalColor {
	c := DefaultTheme.Colors
	switch t {
	case transcript.TypeUser:
		return c.Green
	case transcript.TypeAssistant:
		return c.Blue
	case transcript.TypeSystem:
		return c.Yellow
	default:
		return c.Muted
	}
}

func shortID(id string) string {
	if len(id) > 8 && strings.Count(id, "-") == 4 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
