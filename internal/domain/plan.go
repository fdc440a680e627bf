package domain

// IssueRef identifies the issue a plan belongs to
type IssueRef struct {
	Number int    `json:"number" yaml:"number"`
	Title  string `json:"title" yaml:"title"`
}

// Phase is one step of an execution plan
type Phase struct {
	Number       int         `json:"number" yaml:"number"`
	Title        string      `json:"title" yaml:"title"`
	Status       PhaseStatus `json:"status" yaml:"status"`
	Files        []string    `json:"files,omitempty" yaml:"files,omitempty"`
	Verification []string    `json:"verification,omitempty" yaml:"verification,omitempty"`
	Summary      string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error        string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExecutionPlan is the per-issue phase declaration the CLI writes as work
// progresses. Phase numbers are unique and stable for the plan's lifetime.
type ExecutionPlan struct {
	Issue  IssueRef `json:"issue" yaml:"issue"`
	Status string   `json:"status" yaml:"status"`
	Phases []Phase  `json:"phases" yaml:"phases"`
}

// Clone returns a deep copy safe to hand to readers
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.Phases = make([]Phase, len(p.Phases))
	for i, ph := range p.Phases {
		out.Phases[i] = ph
		out.Phases[i].Files = append([]string(nil), ph.Files...)
		out.Phases[i].Verification = append([]string(nil), ph.Verification...)
	}
	return &out
}

// CompletedPhaseNumbers returns the numbers of all completed phases in
// declaration order
func (p *ExecutionPlan) CompletedPhaseNumbers() []int {
	nums := []int{}
	for _, ph := range p.Phases {
		if ph.Status == PhaseCompleted {
			nums = append(nums, ph.Number)
		}
	}
	return nums
}

// InProgressPhase returns the phase currently in progress, or nil
func (p *ExecutionPlan) InProgressPhase() *Phase {
	for i := range p.Phases {
		if p.Phases[i].Status == PhaseInProgress {
			return &p.Phases[i]
		}
	}
	return nil
}

// FailedPhase returns the first failed phase, or nil
func (p *ExecutionPlan) FailedPhase() *Phase {
	for i := range p.Phases {
		if p.Phases[i].Status == PhaseFailed {
			return &p.Phases[i]
		}
	}
	return nil
}
