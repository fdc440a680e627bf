package rawstate

import (
	"testing"
	"time"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

func TestMap_NonRecordInput(t *testing.T) {
	inputs := []any{nil, "executing", 42, 3.14, true, []any{1, 2}}

	for _, in := range inputs {
		if got := Map(in); got != nil {
			t.Errorf("Map(%v) = %+v, want nil", in, got)
		}
	}
}

func TestMap_Defaults(t *testing.T) {
	got := Map(map[string]any{})
	if got == nil {
		t.Fatal("Map of empty record should not be nil")
	}
	if got.Status != domain.StatusIdle {
		t.Errorf("Status = %q, want idle", got.Status)
	}
	if got.CompletedPhases == nil || len(got.CompletedPhases) != 0 {
		t.Errorf("CompletedPhases = %v, want []", got.CompletedPhases)
	}
	if got.ActiveIssue != nil {
		t.Errorf("ActiveIssue = %v, want nil", got.ActiveIssue)
	}
}

func TestMap_UnrecognizedStatus(t *testing.T) {
	got := Map(map[string]any{"status": "warming_up"})
	if got.Status != domain.StatusIdle {
		t.Errorf("Status = %q, want idle for unrecognized status", got.Status)
	}
}

func TestMap_SimplifiedState(t *testing.T) {
	got := Map(map[string]any{
		"activeIssue":     float64(42),
		"currentPhase":    float64(2),
		"status":          "executing",
		"completedPhases": []any{float64(1)},
		"lastActivity":    "2026-08-29T10:00:00Z",
	})

	if got.ActiveIssue == nil || *got.ActiveIssue != 42 {
		t.Errorf("ActiveIssue = %v, want 42", got.ActiveIssue)
	}
	if got.CurrentPhase == nil || *got.CurrentPhase != 2 {
		t.Errorf("CurrentPhase = %v, want 2", got.CurrentPhase)
	}
	if got.Status != domain.StatusExecuting {
		t.Errorf("Status = %q, want executing", got.Status)
	}
	if len(got.CompletedPhases) != 1 || got.CompletedPhases[0] != 1 {
		t.Errorf("CompletedPhases = %v, want [1]", got.CompletedPhases)
	}
	want := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got.LastActivity == nil || !got.LastActivity.Equal(want) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, want)
	}
}

func TestMap_ExtendedFields(t *testing.T) {
	got := Map(map[string]any{
		"status":             "auto_fixing",
		"activeIssueTitle":   "Fix the flaky watcher",
		"totalPhases":        float64(5),
		"lastCompletedIssue": float64(41),
		"startedAt":          "2026-08-29T09:00:00Z",
		"autoFixAttempt":     float64(2),
		"autoFixMaxAttempts": float64(3),
	})

	if got.Status != domain.StatusAutoFixing {
		t.Errorf("Status = %q, want auto_fixing", got.Status)
	}
	if got.ActiveIssueTitle != "Fix the flaky watcher" {
		t.Errorf("ActiveIssueTitle = %q", got.ActiveIssueTitle)
	}
	if got.TotalPhases == nil || *got.TotalPhases != 5 {
		t.Errorf("TotalPhases = %v, want 5", got.TotalPhases)
	}
	if got.AutoFixAttempt == nil || *got.AutoFixAttempt != 2 {
		t.Errorf("AutoFixAttempt = %v, want 2", got.AutoFixAttempt)
	}
	if got.MaxAutoFixAttempts == nil || *got.MaxAutoFixAttempts != 3 {
		t.Errorf("MaxAutoFixAttempts = %v, want 3", got.MaxAutoFixAttempts)
	}
}

func TestMap_ExecutionIdentifierPrecedence(t *testing.T) {
	got := Map(map[string]any{
		"activeExecutions": []any{
			map[string]any{"issue": float64(10), "issueNumber": float64(20), "currentIssue": float64(30)},
			map[string]any{"issueNumber": float64(20), "currentIssue": float64(30)},
			map[string]any{"currentIssue": float64(30)},
			map[string]any{"status": "executing"},
		},
	})

	if len(got.Executions) != 3 {
		t.Fatalf("Execution count = %d, want 3 (unattributable entry dropped)", len(got.Executions))
	}
	if got.Executions[0].IssueNumber != 10 {
		t.Errorf("First entry issue = %d, want 10 (issue wins)", got.Executions[0].IssueNumber)
	}
	if got.Executions[1].IssueNumber != 20 {
		t.Errorf("Second entry issue = %d, want 20 (issueNumber next)", got.Executions[1].IssueNumber)
	}
	if got.Executions[2].IssueNumber != 30 {
		t.Errorf("Third entry issue = %d, want 30 (currentIssue last)", got.Executions[2].IssueNumber)
	}
}

func TestMap_ExecutionFields(t *testing.T) {
	got := Map(map[string]any{
		"activeExecutions": []any{
			map[string]any{
				"id":              "exec-1",
				"issue":           float64(7),
				"currentPhase":    float64(3),
				"status":          "running_hook",
				"activeHook":      "pre-commit",
				"completedPhases": []any{float64(1), float64(2)},
				"type":            "release",
			},
		},
	})

	exec := got.Executions[0]
	if exec.ID != "exec-1" || exec.IssueNumber != 7 {
		t.Errorf("Execution identity = %q/%d, want exec-1/7", exec.ID, exec.IssueNumber)
	}
	if exec.Status != domain.StatusRunningHook || exec.HookName != "pre-commit" {
		t.Errorf("Status/hook = %q/%q, want running_hook/pre-commit", exec.Status, exec.HookName)
	}
	if len(exec.CompletedPhases) != 2 {
		t.Errorf("CompletedPhases = %v, want [1 2]", exec.CompletedPhases)
	}
	if exec.Type != "release" {
		t.Errorf("Type = %q, want release", exec.Type)
	}
}

func TestMap_UnixMillisTimestamp(t *testing.T) {
	got := Map(map[string]any{"lastActivity": float64(1756459200000)})
	if got.LastActivity == nil {
		t.Fatal("LastActivity should parse from unix millis")
	}
	if got.LastActivity.Year() != 2025 {
		t.Errorf("LastActivity year = %d, want 2025", got.LastActivity.Year())
	}
}

func TestMap_Pure(t *testing.T) {
	raw := map[string]any{"status": "executing", "completedPhases": []any{float64(1)}}

	first := Map(raw)
	second := Map(raw)

	first.CompletedPhases[0] = 99
	if second.CompletedPhases[0] != 1 {
		t.Error("Repeated mapping should not share state")
	}
	if raw["status"] != "executing" {
		t.Error("Map must not mutate its input")
	}
}
