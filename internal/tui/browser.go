// Package tui is an interactive browser over an analysis result: one
// tab per entity kind, a ranked list, and a detail pane for the
// selected entity.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/metrics"
	"github.com/pubscope/pubscope/internal/model"
)

var tabKinds = []model.Kind{
	model.KindApplication, model.KindTopic, model.KindNode, model.KindLibrary,
}

var tabTitles = map[model.Kind]string{
	model.KindApplication: "Applications",
	model.KindTopic:       "Topics",
	model.KindNode:        "Nodes",
	model.KindLibrary:     "Libraries",
}

// BrowserModel is the root bubbletea model.
type BrowserModel struct {
	result *analysis.Result
	styles *Styles

	tab      int
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewBrowser creates the result browser.
func NewBrowser(res *analysis.Result) BrowserModel {
	return BrowserModel{
		result: res,
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model
func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) rows() []analysis.Row {
	return m.result.Kinds[tabKinds[m.tab]].Ranking
}

// Update implements tea.Model
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab", "right", "l":
			m.tab = (m.tab + 1) % len(tabKinds)
			m.cursor = 0

		case "shift+tab", "left", "h":
			m.tab = (m.tab + len(tabKinds) - 1) % len(tabKinds)
			m.cursor = 0

		case "down", "j":
			if m.cursor < len(m.rows())-1 {
				m.cursor++
			}

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "g":
			m.cursor = 0

		case "G":
			if n := len(m.rows()); n > 0 {
				m.cursor = n - 1
			}
		}
	}

	return m, nil
}

// View implements tea.Model
func (m BrowserModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("pubscope · %s", m.result.Dataset)))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	list := m.renderList()
	detail := m.renderDetail()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", detail))

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("↑/↓ select · tab switch kind · q quit"))
	return b.String()
}

func (m BrowserModel) renderTabs() string {
	var tabs []string
	for i, kind := range tabKinds {
		title := fmt.Sprintf("%s (%d)", tabTitles[kind], len(m.result.Kinds[kind].Ranking))
		if i == m.tab {
			tabs = append(tabs, m.styles.ActiveTab.Render(title))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m BrowserModel) renderList() string {
	rows := m.rows()
	if len(rows) == 0 {
		return m.styles.Border.Render(m.styles.Help.Render("no entities of this kind"))
	}

	var b strings.Builder
	for i, row := range rows {
		line := fmt.Sprintf("%3d. %-24s %7.4f", i+1, truncate(row.Name, 24), row.Score)
		if i == m.cursor {
			line = m.styles.Selected.Render("> " + line)
		} else {
			line = m.styles.RowText.Render("  " + line)
		}
		b.WriteString(line)
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return m.styles.ActiveBorder.Render(b.String())
}

func (m BrowserModel) renderDetail() string {
	rows := m.rows()
	if len(rows) == 0 || m.cursor >= len(rows) {
		return ""
	}
	row := rows[m.cursor]
	kr := m.result.Kinds[tabKinds[m.tab]]

	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render(row.Name))
	b.WriteString("\n")
	b.WriteString(ScoreColor(row.Score).Render(fmt.Sprintf("score %.4f", row.Score)))
	b.WriteString(m.styles.RowText.Render(
		fmt.Sprintf("  patterns %.4f · extremity %.4f", row.PatternScore, row.UniScore)))
	b.WriteString("\n\n")

	if len(row.Patterns) > 0 {
		var badges []string
		for _, p := range row.Patterns {
			badges = append(badges, m.styles.PatternBadge.Render(string(p)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, badges...))
		b.WriteString("\n\n")
	}

	for _, metric := range metrics.ForKind(tabKinds[m.tab]) {
		s := kr.Summaries[metric]
		marker := " "
		switch {
		case s.High(row.Metrics[metric]):
			marker = "↑"
		case s.Low(row.Metrics[metric]):
			marker = "↓"
		}
		b.WriteString(m.styles.RowText.Render(
			fmt.Sprintf("%-5s %8.4f %s  (q1 %.3f · q3 %.3f)\n",
				metric, row.Metrics[metric], marker, s.Q1, s.Q3)))
	}

	return m.styles.Border.Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
