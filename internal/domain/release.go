package domain

import "time"

// Release is one rollout tracked by the workflow CLI. A release drives a set
// of issues; CurrentIssue names the one it is executing right now.
type Release struct {
	Version      string        `json:"version" yaml:"version"`
	Name         string        `json:"name,omitempty" yaml:"name,omitempty"`
	Status       ReleaseStatus `json:"status" yaml:"status"`
	CurrentIssue *int          `json:"currentIssue,omitempty" yaml:"currentIssue,omitempty"`
	Issues       []int         `json:"issues,omitempty" yaml:"issues,omitempty"`
	StartedAt    *time.Time    `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
}

// QueueItem is one entry of the work queue. The queue is opaque to the
// reconciler and passed through to readers unchanged.
type QueueItem struct {
	IssueNumber int    `json:"issueNumber" yaml:"issueNumber"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Position    int    `json:"position,omitempty" yaml:"position,omitempty"`
}
