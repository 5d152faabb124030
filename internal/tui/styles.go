package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark dashboard theme
const (
	ColorBg     = "#0d1117"
	ColorCard   = "#161b22"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style

	Selected lipgloss.Style
	RowText  lipgloss.Style

	PatternBadge lipgloss.Style

	Border       lipgloss.Style
	ActiveBorder lipgloss.Style

	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			MarginBottom(1),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCard)).
			Foreground(lipgloss.Color(ColorBright)).
			Bold(true),

		RowText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		PatternBadge: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorBlue)).
			Foreground(lipgloss.Color(ColorBg)).
			Padding(0, 1).
			Bold(true),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(1, 2),

		ActiveBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBlue)).
			Padding(1, 2),

		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Padding(0, 2),

		ActiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 2),
	}
}

// ScoreColor returns a styled badge based on an anomaly score. Scores
// above 1 triggered at least one pattern outright; the midband usually
// means extremity without patterns.
func ScoreColor(score float64) lipgloss.Style {
	style := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true)

	switch {
	case score >= 1:
		return style.
			Background(lipgloss.Color(ColorRed)).
			Foreground(lipgloss.Color(ColorBg))
	case score > 0:
		return style.
			Background(lipgloss.Color(ColorYellow)).
			Foreground(lipgloss.Color(ColorBg))
	default:
		return style.
			Background(lipgloss.Color(ColorGreen)).
			Foreground(lipgloss.Color(ColorBg))
	}
}
