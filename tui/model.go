package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
	"github.com/hochfrequenz/claude-exec-monitor/internal/reconcile"
)

// Tab indexes for the dashboard
const (
	tabExecution = iota
	tabQueue
	tabReleases
	tabCount
)

// Model is the TUI application model
type Model struct {
	reconciler *reconcile.Reconciler
	refresh    func(context.Context) error
	project    string

	// Data snapshots
	state    domain.ExecutionState
	queue    []domain.QueueItem
	releases []domain.Release

	// UI state
	width     int
	height    int
	activeTab int

	lastRefresh time.Time
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Reconciler *reconcile.Reconciler
	Refresh    func(context.Context) error
	Project    string
}

// NewModel creates the TUI model
func NewModel(cfg ModelConfig) Model {
	m := Model{
		reconciler: cfg.Reconciler,
		refresh:    cfg.Refresh,
		project:    cfg.Project,
	}
	m.snapshot()
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// snapshot pulls current data from the reconciler
func (m *Model) snapshot() {
	m.state = m.reconciler.State()
	m.queue = m.reconciler.Queue()
	m.releases = m.reconciler.Releases()
	m.lastRefresh = time.Now()
}

// activePlan returns the cached plan for the active issue, or nil
func (m *Model) activePlan() *domain.ExecutionPlan {
	if m.state.ActiveIssue == nil {
		return nil
	}
	return m.reconciler.Plan(*m.state.ActiveIssue)
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
