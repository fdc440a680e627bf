package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
	"github.com/hochfrequenz/claude-exec-monitor/internal/history"
	"github.com/hochfrequenz/claude-exec-monitor/internal/reconcile"
)

func executingReconciler(t *testing.T) *reconcile.Reconciler {
	t.Helper()
	r := reconcile.New(0)
	r.ApplyRawState(map[string]any{
		"activeIssue":     float64(42),
		"currentPhase":    float64(2),
		"status":          "executing",
		"completedPhases": []any{float64(1)},
	})
	return r
}

func TestStateHandler(t *testing.T) {
	server := NewServer(executingReconciler(t), nil, ":8080")

	req := httptest.NewRequest("GET", "/api/state", nil)
	w := httptest.NewRecorder()
	server.stateHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	var state domain.ExecutionState
	json.NewDecoder(w.Body).Decode(&state)
	if state.ActiveIssue == nil || *state.ActiveIssue != 42 {
		t.Errorf("ActiveIssue = %v, want 42", state.ActiveIssue)
	}
	if state.Status != domain.StatusExecuting {
		t.Errorf("Status = %q, want executing", state.Status)
	}
}

func TestPlanHandler(t *testing.T) {
	rec := executingReconciler(t)
	rec.ApplyPlan(&domain.ExecutionPlan{
		Issue:  domain.IssueRef{Number: 42, Title: "Add retries"},
		Phases: []domain.Phase{{Number: 1, Status: domain.PhaseCompleted}},
	})
	server := NewServer(rec, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/plans/42", nil)
	w := httptest.NewRecorder()
	server.planHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	var plan domain.ExecutionPlan
	json.NewDecoder(w.Body).Decode(&plan)
	if plan.Issue.Title != "Add retries" {
		t.Errorf("Plan title = %q", plan.Issue.Title)
	}
}

func TestPlanHandler_NotFound(t *testing.T) {
	server := NewServer(reconcile.New(0), nil, ":8080")

	req := httptest.NewRequest("GET", "/api/plans/99", nil)
	w := httptest.NewRecorder()
	server.planHandler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
}

func TestPlanHandler_BadIssue(t *testing.T) {
	server := NewServer(reconcile.New(0), nil, ":8080")

	req := httptest.NewRequest("GET", "/api/plans/abc", nil)
	w := httptest.NewRecorder()
	server.planHandler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestQueueAndReleasesHandlers(t *testing.T) {
	rec := reconcile.New(0)
	rec.ApplyQueue([]domain.QueueItem{{IssueNumber: 10, Title: "First"}})
	rec.ApplyRelease(domain.Release{Version: "1.0.0", Status: domain.ReleaseActive})
	server := NewServer(rec, nil, ":8080")

	w := httptest.NewRecorder()
	server.queueHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/queue", nil))
	var queue []domain.QueueItem
	json.NewDecoder(w.Body).Decode(&queue)
	if len(queue) != 1 || queue[0].IssueNumber != 10 {
		t.Errorf("Queue = %+v", queue)
	}

	w = httptest.NewRecorder()
	server.releasesHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/releases", nil))
	var releases []domain.Release
	json.NewDecoder(w.Body).Decode(&releases)
	if len(releases) != 1 || releases[0].Version != "1.0.0" {
		t.Errorf("Releases = %+v", releases)
	}
}

func TestHistoryHandler(t *testing.T) {
	journal, err := history.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	issue := 42
	journal.Record(history.Transition{Issue: &issue, From: domain.StatusIdle, To: domain.StatusExecuting})

	server := NewServer(reconcile.New(0), journal, ":8080")

	w := httptest.NewRecorder()
	server.historyHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	var transitions []TransitionResponse
	json.NewDecoder(w.Body).Decode(&transitions)
	if len(transitions) != 1 || transitions[0].To != "executing" {
		t.Errorf("Transitions = %+v", transitions)
	}
}

func TestHistoryHandler_Disabled(t *testing.T) {
	server := NewServer(reconcile.New(0), nil, ":8080")

	w := httptest.NewRecorder()
	server.historyHandler().ServeHTTP(w, httptest.NewRequest("GET", "/api/history", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404 when history disabled", w.Code)
	}
}

func TestSSEHub_BroadcastReachesClient(t *testing.T) {
	hub := NewSSEHub()
	go hub.Run()

	client := make(chan SSEEvent, 1)
	hub.register <- client

	hub.Broadcast(SSEEvent{Type: "state", Data: "payload"})

	got := <-client
	if got.Type != "state" {
		t.Errorf("Event type = %q, want state", got.Type)
	}

	hub.unregister <- client
}
