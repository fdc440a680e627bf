// Package session wires provider subscriptions to the reconciler for the
// lifetime of one active project and tears them down on switch.
package session

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
	"github.com/hochfrequenz/claude-exec-monitor/internal/reconcile"
)

// Manager owns the subscription set for the active project. Switching
// projects clears the reconciler and re-registers everything; a guarded
// marker makes the initial bulk load run at most once per project path.
type Manager struct {
	provider   Provider
	reconciler *reconcile.Reconciler

	mu          sync.Mutex
	projectPath string
	loadedPath  string
	unsubs      []func()
}

// NewManager creates a manager over the given provider and reconciler
func NewManager(provider Provider, reconciler *reconcile.Reconciler) *Manager {
	return &Manager{provider: provider, reconciler: reconciler}
}

// SetProject activates a project, tearing down any previous subscriptions
// and clearing all reconciled state first. An empty path deactivates: state
// is cleared and no further loads happen. The initial bulk load is deferred
// until the provider signals the project switch completed; subscribing
// eagerly here would race the CLI's own initialization.
func (m *Manager) SetProject(path string) {
	m.mu.Lock()
	m.teardownLocked()
	m.projectPath = path
	m.loadedPath = ""
	subscribe := path != ""
	m.mu.Unlock()

	m.reconciler.Clear()

	if !subscribe {
		return
	}

	m.mu.Lock()
	m.unsubs = []func(){
		m.provider.OnStateChange(m.reconciler.ApplyRawState),
		m.provider.OnPlanChange(m.reconciler.ApplyPlan),
		m.provider.OnQueueChange(m.reconciler.ApplyQueue),
		m.provider.OnReleaseChange(m.reconciler.ApplyRelease),
		m.provider.OnProjectSwitched(m.handleProjectSwitched),
	}
	m.mu.Unlock()
}

// Close tears down all subscriptions and clears state
func (m *Manager) Close() {
	m.SetProject("")
}

// ProjectPath returns the currently active project path, empty when none
func (m *Manager) ProjectPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectPath
}

// handleProjectSwitched runs the initial bulk load once per project path.
// A signal for a path that is not the active project belongs to an
// abandoned switch attempt and is dropped. A duplicate signal for the
// already-loaded path is a no-op.
func (m *Manager) handleProjectSwitched(path string) {
	m.mu.Lock()
	if m.projectPath == "" || path != m.projectPath {
		m.mu.Unlock()
		return
	}
	if path == m.loadedPath {
		m.mu.Unlock()
		return
	}
	m.loadedPath = path
	m.mu.Unlock()

	if err := m.load(context.Background(), path); err != nil {
		log.Printf("initial load for %s: %v", path, err)
	}
}

// Plan returns the cached plan for an issue, falling back to a provider
// read when the cache has none. Returns nil without error when the issue
// has no plan anywhere.
func (m *Manager) Plan(ctx context.Context, issue int) (*domain.ExecutionPlan, error) {
	if plan := m.reconciler.Plan(issue); plan != nil {
		return plan, nil
	}
	return m.provider.Plan(ctx, issue)
}

// Refresh re-runs the bulk load for the current project, bypassing the
// once-per-path guard. Used by the scheduled resync and manual refresh.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	path := m.projectPath
	m.mu.Unlock()

	if path == "" {
		return nil
	}
	return m.load(ctx, path)
}

// load fetches global state, releases, and the queue concurrently, then the
// active issue's plan if the loaded state names one. Results for a project
// that is no longer active are discarded; a failed fetch leaves the
// corresponding state at its prior value.
func (m *Manager) load(ctx context.Context, path string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		raw, err := m.provider.State(ctx)
		if err != nil {
			return err
		}
		if !m.stillActive(path) {
			return nil
		}
		m.reconciler.ApplyRawState(raw)

		if issue := m.reconciler.State().ActiveIssue; issue != nil {
			plan, err := m.provider.Plan(ctx, *issue)
			if err != nil || plan == nil {
				return err
			}
			if m.stillActive(path) {
				m.reconciler.ApplyPlan(plan)
			}
		}
		return nil
	})

	g.Go(func() error {
		releases, err := m.provider.Releases(ctx)
		if err != nil {
			return err
		}
		if m.stillActive(path) {
			for _, rel := range releases {
				m.reconciler.ApplyRelease(rel)
			}
		}
		return nil
	})

	g.Go(func() error {
		items, err := m.provider.Queue(ctx)
		if err != nil {
			return err
		}
		if m.stillActive(path) {
			m.reconciler.ApplyQueue(items)
		}
		return nil
	})

	return g.Wait()
}

func (m *Manager) stillActive(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectPath == path
}

func (m *Manager) teardownLocked() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}
