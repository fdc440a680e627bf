package history

import (
	"log"
	"sync"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// Recorder diffs successive state snapshots and journals a transition when
// the status changes or completed progress advances. Wire its Observe
// method as a reconciler change listener.
type Recorder struct {
	store *Store

	mu   sync.Mutex
	prev domain.ExecutionState
	have bool
}

// NewRecorder creates a recorder writing to the given store
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Observe inspects a state snapshot and records a transition if warranted
func (r *Recorder) Observe(state domain.ExecutionState) {
	r.mu.Lock()
	prev, have := r.prev, r.have
	r.prev = state
	r.have = true
	r.mu.Unlock()

	if !have {
		prev = domain.Zero()
	}

	statusChanged := prev.Status != state.Status
	progressed := len(state.CompletedPhases) > len(prev.CompletedPhases)
	if !statusChanged && !progressed {
		return
	}

	err := r.store.Record(Transition{
		Issue:          state.ActiveIssue,
		From:           prev.Status,
		To:             state.Status,
		CompletedCount: len(state.CompletedPhases),
	})
	if err != nil {
		log.Printf("recording transition: %v", err)
	}
}
