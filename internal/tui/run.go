package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pubscope/pubscope/internal/analysis"
)

// Run starts the interactive result browser and blocks until the user
// quits.
func Run(res *analysis.Result) error {
	p := tea.NewProgram(NewBrowser(res), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
