// Package reconcile merges the independently-updated signals the workflow
// CLI emits (global run state, per-issue plans, the work queue, the release
// registry) into one consistent execution view. The CLI writes these files
// independently and not atomically, so events can arrive stale, duplicated,
// or out of order; reconciliation absorbs that without ever showing lost
// progress or activity nobody declared.
package reconcile

import (
	"sort"
	"sync"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
	"github.com/hochfrequenz/claude-exec-monitor/internal/plancache"
	"github.com/hochfrequenz/claude-exec-monitor/internal/rawstate"
)

// Reconciler owns the canonical execution state and the plan cache.
// All event handlers serialize on one mutex; readers get copies.
type Reconciler struct {
	mu       sync.Mutex
	state    domain.ExecutionState
	plans    *plancache.Cache
	queue    []domain.QueueItem
	releases []domain.Release

	listenerMu sync.Mutex
	listeners  []func(domain.ExecutionState)
}

// New creates a reconciler with empty state. planCapacity <= 0 uses the
// default plan cache bound.
func New(planCapacity int) *Reconciler {
	return &Reconciler{
		state: domain.Zero(),
		plans: plancache.New(planCapacity),
	}
}

// OnChange registers a listener invoked with a state snapshot after every
// handled event. Listeners run outside the state lock.
func (r *Reconciler) OnChange(fn func(domain.ExecutionState)) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// ApplyRawState replaces the canonical state wholesale with the mapped raw
// payload. The global state file is the CLI's own declaration of truth and
// always wins over locally derived guesses. A payload that fails to map
// leaves the prior state untouched.
func (r *Reconciler) ApplyRawState(raw any) {
	mapped := rawstate.Map(raw)
	if mapped == nil {
		return
	}

	r.mu.Lock()
	r.state = *mapped
	r.mu.Unlock()

	r.notify()
}

// ApplyPlan handles a plan-changed event. The plan is always cached; it only
// affects displayed state when its issue is already tracked as active and it
// shows strictly more completed phases than the canonical state records.
func (r *Reconciler) ApplyPlan(plan *domain.ExecutionPlan) {
	if plan == nil {
		return
	}
	r.plans.Put(plan)

	r.mu.Lock()
	r.applyPlanLocked(plan)
	r.mu.Unlock()

	r.notify()
}

func (r *Reconciler) applyPlanLocked(plan *domain.ExecutionPlan) {
	issue := plan.Issue.Number

	// A plan for an issue no signal ever declared active is cached but
	// never surfaced. A plan left mid-progress by a prior session must
	// not conjure up a running execution.
	matchKind := r.matchLocked(issue)
	if matchKind == matchNone {
		return
	}

	completed := plan.CompletedPhaseNumbers()
	active := plan.InProgressPhase()
	failed := plan.FailedPhase()

	if matchKind == matchExecutionList {
		for i := range r.state.Executions {
			exec := &r.state.Executions[i]
			if exec.IssueNumber != issue || len(completed) <= len(exec.CompletedPhases) {
				continue
			}
			exec.CompletedPhases = completed
			applyDerivedPhase(&exec.CurrentPhase, &exec.Status, &exec.ErrorMessage, active, failed)
		}
		return
	}

	// A release rollout's current issue only attributes progress when no
	// other issue already owns the single-execution slot; otherwise the
	// canonical active issue would end up wearing this plan's phases.
	if matchKind == matchRelease && r.state.ActiveIssue != nil {
		return
	}

	// Single-execution path: the monotonic guard keeps an out-of-order or
	// duplicate plan event from rolling displayed progress backward.
	if len(completed) <= len(r.state.CompletedPhases) {
		return
	}
	r.state.CompletedPhases = completed
	if r.state.ActiveIssue == nil {
		// Matched through a release rollout's current issue.
		n := issue
		r.state.ActiveIssue = &n
	}
	applyDerivedPhase(&r.state.CurrentPhase, &r.state.Status, &r.state.ErrorMessage, active, failed)
}

// applyDerivedPhase writes the plan's apparent progress: an in-progress
// phase wins, otherwise a failed phase marks the point of failure, otherwise
// the plan shows nothing running right now and only the phase marker clears.
func applyDerivedPhase(phase **int, status *domain.ExecutionStatus, errMsg *string, active, failed *domain.Phase) {
	switch {
	case active != nil:
		n := active.Number
		*phase = &n
		*status = domain.StatusExecuting
		*errMsg = ""
	case failed != nil:
		n := failed.Number
		*phase = &n
		*status = domain.StatusFailed
		*errMsg = failed.Error
	default:
		*phase = nil
	}
}

type matchKind int

const (
	matchNone matchKind = iota
	matchActiveIssue
	matchExecutionList
	matchRelease
)

// matchLocked decides whether issue is "the" tracked active issue: the
// canonical active issue, a member of the tracked multi-execution list, or
// an active release rollout's current issue.
func (r *Reconciler) matchLocked(issue int) matchKind {
	if r.state.ActiveIssue != nil && *r.state.ActiveIssue == issue {
		return matchActiveIssue
	}
	for _, exec := range r.state.Executions {
		if exec.IssueNumber == issue {
			return matchExecutionList
		}
	}
	for _, rel := range r.releases {
		if rel.Status == domain.ReleaseActive && rel.CurrentIssue != nil && *rel.CurrentIssue == issue {
			return matchRelease
		}
	}
	return matchNone
}

// ApplyQueue replaces the work queue wholesale. Queue contents are opaque
// to the reconciler and passed through to readers unchanged.
func (r *Reconciler) ApplyQueue(items []domain.QueueItem) {
	r.mu.Lock()
	r.queue = append([]domain.QueueItem(nil), items...)
	r.mu.Unlock()

	r.notify()
}

// ApplyRelease updates a named release's record if present, inserts it
// otherwise, and re-sorts the registry: active releases first, then by
// version descending.
func (r *Reconciler) ApplyRelease(rel domain.Release) {
	r.mu.Lock()
	replaced := false
	for i := range r.releases {
		if r.releases[i].Version == rel.Version {
			r.releases[i] = rel
			replaced = true
			break
		}
	}
	if !replaced {
		r.releases = append(r.releases, rel)
	}
	sortReleases(r.releases)
	r.mu.Unlock()

	r.notify()
}

// Clear resets everything to the rest state. Used when the active project
// changes or goes away so no state leaks across projects.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.state = domain.Zero()
	r.queue = nil
	r.releases = nil
	r.mu.Unlock()
	r.plans.Clear()

	r.notify()
}

// State returns a snapshot of the canonical execution state
func (r *Reconciler) State() domain.ExecutionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Plan returns the cached plan for an issue, or nil
func (r *Reconciler) Plan(issue int) *domain.ExecutionPlan {
	return r.plans.Get(issue)
}

// Queue returns a snapshot of the work queue
func (r *Reconciler) Queue() []domain.QueueItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.QueueItem(nil), r.queue...)
}

// Releases returns a snapshot of the release registry
func (r *Reconciler) Releases() []domain.Release {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Release(nil), r.releases...)
}

func (r *Reconciler) notify() {
	snapshot := r.State()

	r.listenerMu.Lock()
	listeners := append([]func(domain.ExecutionState){}, r.listeners...)
	r.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func sortReleases(releases []domain.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		ai := releases[i].Status == domain.ReleaseActive
		aj := releases[j].Status == domain.ReleaseActive
		if ai != aj {
			return ai
		}
		return compareVersions(releases[i].Version, releases[j].Version) > 0
	})
}
