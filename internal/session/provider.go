package session

import (
	"context"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// Provider is the surface the external collaborator (file watcher or IPC
// socket) exposes: bulk reads plus change subscriptions. Each subscription
// returns an unsubscribe func.
type Provider interface {
	// State returns the raw global state payload; the caller maps it.
	State(ctx context.Context) (any, error)
	Plan(ctx context.Context, issue int) (*domain.ExecutionPlan, error)
	Queue(ctx context.Context) ([]domain.QueueItem, error)
	Releases(ctx context.Context) ([]domain.Release, error)

	OnStateChange(fn func(raw any)) (unsubscribe func())
	OnPlanChange(fn func(plan *domain.ExecutionPlan)) (unsubscribe func())
	OnQueueChange(fn func(items []domain.QueueItem)) (unsubscribe func())
	OnReleaseChange(fn func(rel domain.Release)) (unsubscribe func())

	// OnProjectSwitched fires when the CLI finishes switching to a
	// project; the path names the project the switch completed for.
	OnProjectSwitched(fn func(path string)) (unsubscribe func())
}
