package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pubscope/pubscope/internal/analysis"
	"github.com/pubscope/pubscope/internal/model"
)

func testResult() *analysis.Result {
	return &analysis.Result{
		Dataset: "demo",
		Kinds: map[model.Kind]analysis.KindResult{
			model.KindApplication: {
				Kind: model.KindApplication,
				Ranking: []analysis.Row{
					{ID: "a1", Name: "gateway", Score: 1.5},
					{ID: "a2", Name: "biller", Score: 0.2},
				},
			},
			model.KindTopic:   {Kind: model.KindTopic},
			model.KindNode:    {Kind: model.KindNode},
			model.KindLibrary: {Kind: model.KindLibrary},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowserNavigation(t *testing.T) {
	m := NewBrowser(testResult())

	next, _ := m.Update(key("j"))
	m = next.(BrowserModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	// Cursor clamps at the last row.
	next, _ = m.Update(key("j"))
	m = next.(BrowserModel)
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	next, _ = m.Update(key("k"))
	m = next.(BrowserModel)
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestBrowserTabSwitchResetsCursor(t *testing.T) {
	m := NewBrowser(testResult())

	next, _ := m.Update(key("j"))
	m = next.(BrowserModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(BrowserModel)

	if m.tab != 1 || m.cursor != 0 {
		t.Errorf("tab = %d cursor = %d", m.tab, m.cursor)
	}
}

func TestBrowserViewShowsRanking(t *testing.T) {
	m := NewBrowser(testResult())
	view := m.View()

	for _, want := range []string{"demo", "gateway", "Applications"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBrowserQuit(t *testing.T) {
	m := NewBrowser(testResult())
	next, cmd := m.Update(key("q"))
	m = next.(BrowserModel)

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Error("quitting view not empty")
	}
}
