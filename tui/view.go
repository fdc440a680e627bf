package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	executingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Claude Exec Monitor │ %s", m.project)))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case tabExecution:
		b.WriteString(sectionStyle.Render(m.renderExecution()))
	case tabQueue:
		b.WriteString(sectionStyle.Render(m.renderQueue()))
	case tabReleases:
		b.WriteString(sectionStyle.Render(m.renderReleases()))
	}

	b.WriteString("\n")
	b.WriteString(dimmedStyle.Render("q quit │ r refresh │ tab switch"))
	return b.String()
}

func (m Model) renderTabs() string {
	names := []string{"Execution", "Queue", "Releases"}
	parts := make([]string, len(names))
	for i, name := range names {
		if i == m.activeTab {
			parts[i] = tabActiveStyle.Render(name)
		} else {
			parts[i] = tabInactiveStyle.Render(name)
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderExecution() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Status: %s\n", styleStatus(m.state.Status)))

	if m.state.ActiveIssue != nil {
		title := m.state.ActiveIssueTitle
		if title == "" {
			if plan := m.activePlan(); plan != nil {
				title = plan.Issue.Title
			}
		}
		b.WriteString(fmt.Sprintf("Issue:  #%d %s\n", *m.state.ActiveIssue, title))
	}

	b.WriteString(m.renderProgress(m.state.CurrentPhase, m.state.TotalPhases, m.state.CompletedPhases))

	switch m.state.Status {
	case domain.StatusAutoFixing:
		if m.state.AutoFixAttempt != nil && m.state.MaxAutoFixAttempts != nil {
			b.WriteString(warningStyle.Render(fmt.Sprintf("Auto-fix attempt %d/%d\n",
				*m.state.AutoFixAttempt, *m.state.MaxAutoFixAttempts)))
		}
	case domain.StatusRunningHook:
		b.WriteString(warningStyle.Render(fmt.Sprintf("Hook: %s\n", m.state.HookName)))
	case domain.StatusFailed:
		if m.state.ErrorMessage != "" {
			b.WriteString(failedStyle.Render(fmt.Sprintf("Error: %s\n", m.state.ErrorMessage)))
		}
	}

	if len(m.state.Executions) > 0 {
		b.WriteString("\nConcurrent executions:\n")
		for _, exec := range m.state.Executions {
			b.WriteString(fmt.Sprintf("  #%-5d %s %s\n",
				exec.IssueNumber, styleStatus(exec.Status), phaseSummary(exec.CurrentPhase, exec.TotalPhases)))
		}
	}

	if m.state.LastActivity != nil {
		b.WriteString(dimmedStyle.Render(fmt.Sprintf("\nLast activity %s", humanize.Time(*m.state.LastActivity))))
	}

	return b.String()
}

func (m Model) renderProgress(current, total *int, completed []int) string {
	if current == nil && len(completed) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Phases: ")
	if len(completed) > 0 {
		done := make([]string, len(completed))
		for i, n := range completed {
			done[i] = fmt.Sprintf("%d", n)
		}
		b.WriteString(completedStyle.Render(strings.Join(done, " ")))
		b.WriteString(" ")
	}
	if current != nil {
		b.WriteString(executingStyle.Render(fmt.Sprintf("▶ %d", *current)))
		if total != nil {
			b.WriteString(dimmedStyle.Render(fmt.Sprintf("/%d", *total)))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderQueue() string {
	if len(m.queue) == 0 {
		return dimmedStyle.Render("Queue empty")
	}

	var b strings.Builder
	for _, item := range m.queue {
		b.WriteString(fmt.Sprintf("%2d. #%-5d %s\n", item.Position, item.IssueNumber, item.Title))
	}
	return b.String()
}

func (m Model) renderReleases() string {
	if len(m.releases) == 0 {
		return dimmedStyle.Render("No releases")
	}

	var b strings.Builder
	for _, rel := range m.releases {
		line := fmt.Sprintf("%-12s %s", rel.Version, rel.Status)
		if rel.CurrentIssue != nil {
			line += fmt.Sprintf(" (issue #%d)", *rel.CurrentIssue)
		}
		if rel.Status == domain.ReleaseActive {
			b.WriteString(executingStyle.Render(line))
		} else {
			b.WriteString(dimmedStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func styleStatus(status domain.ExecutionStatus) string {
	switch status {
	case domain.StatusExecuting:
		return executingStyle.Render(string(status))
	case domain.StatusFailed:
		return failedStyle.Render(string(status))
	case domain.StatusAutoFixing, domain.StatusRunningHook, domain.StatusPaused:
		return warningStyle.Render(string(status))
	default:
		return dimmedStyle.Render(string(status))
	}
}

func phaseSummary(current, total *int) string {
	if current == nil {
		return ""
	}
	if total != nil {
		return fmt.Sprintf("phase %d/%d", *current, *total)
	}
	return fmt.Sprintf("phase %d", *current)
}
