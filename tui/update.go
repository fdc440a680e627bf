package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// refreshDoneMsg is sent when a manual refresh completes
type refreshDoneMsg struct {
	err error
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.refresh == nil {
				return m, nil
			}
			refresh := m.refresh
			return m, func() tea.Msg {
				return refreshDoneMsg{err: refresh(context.Background())}
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.snapshot()
		return m, tickCmd()

	case refreshDoneMsg:
		m.snapshot()
	}

	return m, nil
}
