package domain

// ExecutionStatus represents the reconciled state of a workflow execution
type ExecutionStatus string

const (
	StatusIdle        ExecutionStatus = "idle"
	StatusExecuting   ExecutionStatus = "executing"
	StatusPaused      ExecutionStatus = "paused"
	StatusFailed      ExecutionStatus = "failed"
	StatusAutoFixing  ExecutionStatus = "auto_fixing"
	StatusRunningHook ExecutionStatus = "running_hook"
)

// KnownStatus reports whether s is one of the statuses the CLI emits
func KnownStatus(s ExecutionStatus) bool {
	switch s {
	case StatusIdle, StatusExecuting, StatusPaused, StatusFailed, StatusAutoFixing, StatusRunningHook:
		return true
	}
	return false
}

// PhaseStatus represents the lifecycle state of a single plan phase
type PhaseStatus string

const (
	PhasePending    PhaseStatus = "pending"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseFailed     PhaseStatus = "failed"
)

// ReleaseStatus represents the rollout state of a release
type ReleaseStatus string

const (
	ReleaseActive    ReleaseStatus = "active"
	ReleaseCompleted ReleaseStatus = "completed"
	ReleaseCancelled ReleaseStatus = "cancelled"
)
