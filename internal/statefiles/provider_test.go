package statefiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

func writeStateDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, DefaultStateDir)
	if err := os.MkdirAll(filepath.Join(dir, plansDir), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestProvider_State(t *testing.T) {
	root := writeStateDir(t, map[string]string{
		"state.json": `{"activeIssue": 42, "status": "executing", "completedPhases": [1]}`,
	})

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	raw, err := p.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := raw.(map[string]any)
	if !ok {
		t.Fatalf("State payload type = %T, want map", raw)
	}
	if rec["activeIssue"] != float64(42) {
		t.Errorf("activeIssue = %v, want 42", rec["activeIssue"])
	}
}

func TestProvider_StateMissingFile(t *testing.T) {
	root := writeStateDir(t, nil)

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	raw, err := p.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raw != nil {
		t.Errorf("State = %v, want nil for missing file", raw)
	}
}

func TestProvider_StateMalformedFile(t *testing.T) {
	root := writeStateDir(t, map[string]string{"state.json": `{not json`})

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	raw, err := p.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if raw != nil {
		t.Errorf("State = %v, want nil for malformed file", raw)
	}
}

func TestProvider_PlanJSONAndYAML(t *testing.T) {
	root := writeStateDir(t, map[string]string{
		"plans/issue-42.json": `{"issue": {"number": 42, "title": "Add retries"}, "status": "in_progress", "phases": [{"number": 1, "title": "Scaffold", "status": "completed"}, {"number": 2, "title": "Wire", "status": "in_progress"}]}`,
		"plans/issue-7.yaml": `issue:
  number: 7
  title: Legacy plan
status: pending
phases:
  - number: 1
    title: Setup
    status: pending
`,
	})

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	plan, err := p.Plan(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if plan == nil || plan.Issue.Number != 42 || len(plan.Phases) != 2 {
		t.Fatalf("JSON plan = %+v", plan)
	}
	if plan.Phases[1].Status != domain.PhaseInProgress {
		t.Errorf("Phase 2 status = %q, want in_progress", plan.Phases[1].Status)
	}

	legacy, err := p.Plan(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if legacy == nil || legacy.Issue.Title != "Legacy plan" {
		t.Fatalf("YAML plan = %+v", legacy)
	}

	missing, err := p.Plan(context.Background(), 99)
	if err != nil || missing != nil {
		t.Errorf("Plan(99) = %v, %v, want nil, nil", missing, err)
	}
}

func TestProvider_QueueAndReleases(t *testing.T) {
	root := writeStateDir(t, map[string]string{
		"queue.json":    `[{"issueNumber": 10, "title": "First", "position": 1}]`,
		"releases.json": `[{"version": "1.2.0", "status": "active", "currentIssue": 10}]`,
	})

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	queue, err := p.Queue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 1 || queue[0].IssueNumber != 10 {
		t.Errorf("Queue = %+v", queue)
	}

	releases, err := p.Releases(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != 1 || releases[0].Version != "1.2.0" {
		t.Fatalf("Releases = %+v", releases)
	}
	if releases[0].CurrentIssue == nil || *releases[0].CurrentIssue != 10 {
		t.Errorf("CurrentIssue = %v, want 10", releases[0].CurrentIssue)
	}
}

func TestPlanIssueNumber(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"issue-42.json", 42},
		{"issue-7.yaml", 7},
		{"issue-7.yml", 7},
		{"issue-.json", -1},
		{"state.json", -1},
		{"issue-42.md", -1},
	}

	for _, c := range cases {
		if got := planIssueNumber(c.name); got != c.want {
			t.Errorf("planIssueNumber(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestProvider_WatchDispatchesEvents(t *testing.T) {
	root := writeStateDir(t, nil)

	p, err := New(root, "", WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	stateCh := make(chan any, 1)
	planCh := make(chan *domain.ExecutionPlan, 1)
	p.OnStateChange(func(raw any) { stateCh <- raw })
	p.OnPlanChange(func(plan *domain.ExecutionPlan) { planCh <- plan })

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(root, DefaultStateDir)
	os.WriteFile(filepath.Join(dir, "state.json"), []byte(`{"activeIssue": 5, "status": "executing"}`), 0o644)
	os.WriteFile(filepath.Join(dir, plansDir, "issue-5.json"), []byte(`{"issue": {"number": 5}, "phases": []}`), 0o644)

	select {
	case raw := <-stateCh:
		rec := raw.(map[string]any)
		if rec["activeIssue"] != float64(5) {
			t.Errorf("Dispatched state activeIssue = %v, want 5", rec["activeIssue"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for state change dispatch")
	}

	select {
	case plan := <-planCh:
		if plan.Issue.Number != 5 {
			t.Errorf("Dispatched plan issue = %d, want 5", plan.Issue.Number)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for plan change dispatch")
	}
}

func TestProvider_UnsubscribeStopsDispatch(t *testing.T) {
	root := writeStateDir(t, nil)

	p, err := New(root, "")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	calls := 0
	unsub := p.OnStateChange(func(any) { calls++ })
	unsub()

	p.subs.eachState(map[string]any{})
	if calls != 0 {
		t.Errorf("Calls after unsubscribe = %d, want 0", calls)
	}
}
