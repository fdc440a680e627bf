// Package rawstate normalizes the heterogeneous on-disk state payloads
// written by different generations of the workflow CLI into the canonical
// in-memory execution state. The CLI never declares a schema version, so
// mapping works by best-available-field fallback rather than version tags.
package rawstate

import (
	"time"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// Map translates a raw state payload into canonical execution state.
// It returns nil when raw is not a structured record (covers malformed or
// missing state files). Unknown or absent fields fall back to defaults;
// nothing here ever panics or performs I/O.
func Map(raw any) *domain.ExecutionState {
	rec, ok := raw.(map[string]any)
	if !ok || rec == nil {
		return nil
	}

	state := domain.Zero()
	state.ActiveIssue = intField(rec, "activeIssue")
	state.ActiveIssueTitle = stringField(rec, "activeIssueTitle")
	state.CurrentPhase = intField(rec, "currentPhase")
	state.TotalPhases = intField(rec, "totalPhases")
	state.LastActivity = timeField(rec, "lastActivity")
	state.StartedAt = timeField(rec, "startedAt")
	state.LastCompletedIssue = intField(rec, "lastCompletedIssue")
	state.LastCompletedAt = timeField(rec, "lastCompletedAt")
	state.AutoFixAttempt = intField(rec, "autoFixAttempt")
	state.MaxAutoFixAttempts = intField(rec, "autoFixMaxAttempts")
	state.HookName = stringField(rec, "activeHook")
	state.ErrorMessage = stringField(rec, "errorMessage")

	if s := domain.ExecutionStatus(stringField(rec, "status")); domain.KnownStatus(s) {
		state.Status = s
	}
	if phases := intSlice(rec["completedPhases"]); phases != nil {
		state.CompletedPhases = phases
	}
	state.Executions = mapExecutions(rec["activeExecutions"])

	return &state
}

// mapExecutions normalizes the v2 multi-execution list. Entries that cannot
// be attributed to an issue are dropped: they are not actionable state.
func mapExecutions(raw any) []domain.Execution {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []domain.Execution
	for _, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}

		// The issue identifier has moved across CLI versions: "issue"
		// is current, "issueNumber" is the older name, "currentIssue"
		// is what release-driven executions write. First present wins.
		issue := firstIntField(rec, "issue", "issueNumber", "currentIssue")
		if issue == nil {
			continue
		}

		exec := domain.Execution{
			ID:                 stringField(rec, "id"),
			IssueNumber:        *issue,
			CurrentPhase:       intField(rec, "currentPhase"),
			TotalPhases:        intField(rec, "totalPhases"),
			Status:             domain.StatusIdle,
			CompletedPhases:    []int{},
			AutoFixAttempt:     intField(rec, "autoFixAttempt"),
			MaxAutoFixAttempts: intField(rec, "autoFixMaxAttempts"),
			HookName:           stringField(rec, "activeHook"),
			ErrorMessage:       stringField(rec, "errorMessage"),
			StartedAt:          timeField(rec, "startedAt"),
			Type:               stringField(rec, "type"),
		}
		if s := domain.ExecutionStatus(stringField(rec, "status")); domain.KnownStatus(s) {
			exec.Status = s
		}
		if phases := intSlice(rec["completedPhases"]); phases != nil {
			exec.CompletedPhases = phases
		}
		out = append(out, exec)
	}
	return out
}

func firstIntField(rec map[string]any, keys ...string) *int {
	for _, key := range keys {
		if v := intField(rec, key); v != nil {
			return v
		}
	}
	return nil
}

func intField(rec map[string]any, key string) *int {
	if n, ok := asInt(rec[key]); ok {
		return &n
	}
	return nil
}

// asInt accepts the numeric representations JSON and YAML decoding produce
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func stringField(rec map[string]any, key string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return ""
}

func intSlice(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := []int{}
	for _, item := range list {
		if n, ok := asInt(item); ok {
			out = append(out, n)
		}
	}
	return out
}

// timeField accepts RFC3339 strings and unix-millisecond numbers; the CLI
// has written both across versions
func timeField(rec map[string]any, key string) *time.Time {
	switch v := rec[key].(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return &ts
		}
	case float64:
		ts := time.UnixMilli(int64(v)).UTC()
		return &ts
	}
	return nil
}
