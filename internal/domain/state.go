package domain

import "time"

// ExecutionState is the single reconciled view of what the workflow CLI is
// currently doing for the active project. It is owned by the reconciler;
// everything else reads copies.
type ExecutionState struct {
	ActiveIssue        *int            `json:"activeIssue,omitempty"`
	ActiveIssueTitle   string          `json:"activeIssueTitle,omitempty"`
	CurrentPhase       *int            `json:"currentPhase,omitempty"`
	TotalPhases        *int            `json:"totalPhases,omitempty"`
	Status             ExecutionStatus `json:"status"`
	CompletedPhases    []int           `json:"completedPhases"`
	LastActivity       *time.Time      `json:"lastActivity,omitempty"`
	StartedAt          *time.Time      `json:"startedAt,omitempty"`
	LastCompletedIssue *int            `json:"lastCompletedIssue,omitempty"`
	LastCompletedAt    *time.Time      `json:"lastCompletedAt,omitempty"`
	AutoFixAttempt     *int            `json:"autoFixAttempt,omitempty"`
	MaxAutoFixAttempts *int            `json:"maxAutoFixAttempts,omitempty"`
	HookName           string          `json:"hookName,omitempty"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`

	// Executions is present when the CLI reports multiple concurrent
	// executions, e.g. a release rollout driving several issues.
	Executions []Execution `json:"executions,omitempty"`
}

// Execution mirrors the single-execution fields for one entry of a
// multi-execution run, keyed by issue number.
type Execution struct {
	ID                 string          `json:"id,omitempty"`
	IssueNumber        int             `json:"issueNumber"`
	CurrentPhase       *int            `json:"currentPhase,omitempty"`
	TotalPhases        *int            `json:"totalPhases,omitempty"`
	Status             ExecutionStatus `json:"status"`
	CompletedPhases    []int           `json:"completedPhases"`
	AutoFixAttempt     *int            `json:"autoFixAttempt,omitempty"`
	MaxAutoFixAttempts *int            `json:"maxAutoFixAttempts,omitempty"`
	HookName           string          `json:"hookName,omitempty"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
	StartedAt          *time.Time      `json:"startedAt,omitempty"`
	Type               string          `json:"type,omitempty"`
}

// Zero returns the rest state: idle, no issue, nothing completed
func Zero() ExecutionState {
	return ExecutionState{Status: StatusIdle, CompletedPhases: []int{}}
}

// Clone returns a deep copy safe to hand to readers
func (s ExecutionState) Clone() ExecutionState {
	out := s
	out.ActiveIssue = cloneInt(s.ActiveIssue)
	out.CurrentPhase = cloneInt(s.CurrentPhase)
	out.TotalPhases = cloneInt(s.TotalPhases)
	out.LastCompletedIssue = cloneInt(s.LastCompletedIssue)
	out.AutoFixAttempt = cloneInt(s.AutoFixAttempt)
	out.MaxAutoFixAttempts = cloneInt(s.MaxAutoFixAttempts)
	out.LastActivity = cloneTime(s.LastActivity)
	out.StartedAt = cloneTime(s.StartedAt)
	out.LastCompletedAt = cloneTime(s.LastCompletedAt)
	out.CompletedPhases = append([]int(nil), s.CompletedPhases...)
	if s.Executions != nil {
		out.Executions = make([]Execution, len(s.Executions))
		for i, e := range s.Executions {
			out.Executions[i] = e.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the execution entry
func (e Execution) Clone() Execution {
	out := e
	out.CurrentPhase = cloneInt(e.CurrentPhase)
	out.TotalPhases = cloneInt(e.TotalPhases)
	out.AutoFixAttempt = cloneInt(e.AutoFixAttempt)
	out.MaxAutoFixAttempts = cloneInt(e.MaxAutoFixAttempts)
	out.StartedAt = cloneTime(e.StartedAt)
	out.CompletedPhases = append([]int(nil), e.CompletedPhases...)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
