package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ANSI palette; terminal themes decide the actual shades.
const (
	ansiRed    = "1"
	ansiGreen  = "2"
	ansiYellow = "3"
	ansiBlue   = "4"
	ansiViolet = "5"
	ansiCyan   = "6"
	ansiMuted  = "8"
	ansiOrange = "208"
)

// Colors is the palette used by Theme.
type Colors struct {
	Red    lipgloss.TerminalColor
	Green  lipgloss.TerminalColor
	Yellow lipgloss.TerminalColor
	Blue   lipgloss.TerminalColor
	Violet lipgloss.TerminalColor
	Cyan   lipgloss.TerminalColor
	Orange lipgloss.TerminalColor
	Muted  lipgloss.TerminalColor
}

// Theme holds the styles shared by help output and command renderers.
type Theme struct {
	Colors Colors

	Header  lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	Bold   lipgloss.Style
	Italic lipgloss.Style
	Muted  lipgloss.Style

	TableHeader lipgloss.Style
	ID          lipgloss.Style
}

// DefaultTheme is the theme used by every command.
var DefaultTheme = newTheme()

func newTheme() *Theme {
	c := Colors{
		Red:    lipgloss.Color(ansiRed),
		Green:  lipgloss.Color(ansiGreen),
		Yellow: lipgloss.Color(ansiYellow),
		Blue:   lipgloss.Color(ansiBlue),
		Violet: lipgloss.Color(ansiViolet),
		Cyan:   lipgloss.Color(ansiCyan),
		Orange: lipgloss.Color(ansiOrange),
		Muted:  lipgloss.Color(ansiMuted),
	}
	return &Theme{
		Colors:  c,
		Header:  lipgloss.NewStyle().Bold(true).Foreground(c.Orange),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(c.Red),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(c.Yellow),
		Success: lipgloss.NewStyle().Bold(true).Foreground(c.Green),
		Bold:    lipgloss.NewStyle().Bold(true),
		Italic:  lipgloss.NewStyle().Italic(true),
		Muted:   lipgloss.NewStyle().Faint(true),
		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(c.Blue),
		ID: lipgloss.NewStyle().Foreground(c.Cyan),
	}
}

// ConfigureColor disables styling when noColor is set or NO_COLOR is in the
// environment, and forces it when CLICOLOR_FORCE=1.
func ConfigureColor(noColor bool) {
	switch {
	case noColor || os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
