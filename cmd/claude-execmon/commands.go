package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/claude-exec-monitor/internal/config"
	"github.com/hochfrequenz/claude-exec-monitor/internal/history"
	"github.com/hochfrequenz/claude-exec-monitor/internal/ipc"
	"github.com/hochfrequenz/claude-exec-monitor/internal/reconcile"
	"github.com/hochfrequenz/claude-exec-monitor/internal/resync"
	"github.com/hochfrequenz/claude-exec-monitor/internal/session"
	"github.com/hochfrequenz/claude-exec-monitor/internal/statefiles"
	"github.com/hochfrequenz/claude-exec-monitor/tui"
	"github.com/hochfrequenz/claude-exec-monitor/web/api"
)

var (
	servePort     int
	statusHistory bool
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Launch the live dashboard",
		RunE:  runWatch,
	}
	rootCmd.AddCommand(watchCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the execution state over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current execution state",
		RunE:  runStatus,
	}
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "include recent status transitions")
	rootCmd.AddCommand(statusCmd)

	planCmd := &cobra.Command{
		Use:   "plan ISSUE",
		Short: "Print an issue's execution plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlan,
	}
	rootCmd.AddCommand(planCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// engine bundles the reconciliation stack for one process run
type engine struct {
	reconciler *reconcile.Reconciler
	manager    *session.Manager
	journal    *history.Store
	stop       func()
}

// buildEngine wires provider, reconciler, session manager, and the history
// journal according to config, activates the configured project, and runs
// one refresh so the view is populated even when the CLI switched projects
// before we started.
func buildEngine(ctx context.Context, cfg *config.Config, withJournal bool) (*engine, error) {
	if cfg.General.ProjectRoot == "" {
		return nil, fmt.Errorf("no project_root configured; set it in %s", config.DefaultConfigPath())
	}

	reconciler := reconcile.New(cfg.General.PlanCacheSize)

	e := &engine{reconciler: reconciler, stop: func() {}}

	if withJournal && cfg.General.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.General.DatabasePath), 0o755); err != nil {
			return nil, err
		}
		journal, err := history.New(cfg.General.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening history db: %w", err)
		}
		e.journal = journal
		recorder := history.NewRecorder(journal)
		reconciler.OnChange(recorder.Observe)
	}

	var provider session.Provider
	if cfg.IPC.SocketURL != "" {
		client := ipc.NewClient(cfg.IPC.SocketURL)
		go client.Run()
		provider = client
		e.stop = client.Close
	} else {
		fileProvider, err := statefiles.New(cfg.General.ProjectRoot, cfg.General.StateDir,
			statefiles.WithDebounce(time.Duration(cfg.General.DebounceMs)*time.Millisecond))
		if err != nil {
			return nil, err
		}
		if err := fileProvider.Start(ctx); err != nil {
			return nil, fmt.Errorf("watching %s: %w", cfg.General.ProjectRoot, err)
		}
		provider = fileProvider
		e.stop = fileProvider.Stop
	}

	e.manager = session.NewManager(provider, reconciler)
	e.manager.SetProject(cfg.General.ProjectRoot)
	if err := e.manager.Refresh(ctx); err != nil {
		// A refresh failure is not fatal: change events will fill the
		// view in as the CLI writes.
		fmt.Fprintf(os.Stderr, "initial refresh: %v\n", err)
	}

	if cfg.Resync.Cron != "" {
		sched, err := resync.New(cfg.Resync.Cron)
		if err != nil {
			return nil, fmt.Errorf("resync schedule: %w", err)
		}
		sched.Start(ctx, e.manager.Refresh)
	}

	return e, nil
}

func (e *engine) close() {
	e.manager.Close()
	e.stop()
	if e.journal != nil {
		e.journal.Close()
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.close()

	model := tui.NewModel(tui.ModelConfig{
		Reconciler: eng.reconciler,
		Refresh:    eng.manager.Refresh,
		Project:    cfg.General.ProjectRoot,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Web.Port = servePort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.close()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := api.NewServer(eng.reconciler, eng.journal, addr)
	fmt.Printf("Serving execution state on http://%s\n", addr)
	return server.Start()
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, statusHistory)
	if err != nil {
		return err
	}
	defer eng.close()

	state := eng.reconciler.State()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", state.Status)
	if state.ActiveIssue != nil {
		fmt.Fprintf(w, "Issue:\t#%d %s\n", *state.ActiveIssue, state.ActiveIssueTitle)
	}
	if state.CurrentPhase != nil {
		fmt.Fprintf(w, "Phase:\t%d\n", *state.CurrentPhase)
	}
	if len(state.CompletedPhases) > 0 {
		fmt.Fprintf(w, "Completed:\t%v\n", state.CompletedPhases)
	}
	for _, exec := range state.Executions {
		fmt.Fprintf(w, "Execution:\t#%d %s\n", exec.IssueNumber, exec.Status)
	}
	w.Flush()

	if statusHistory && eng.journal != nil {
		transitions, err := eng.journal.Recent(20)
		if err != nil {
			return err
		}
		fmt.Println("\nRecent transitions:")
		for _, t := range transitions {
			issue := "-"
			if t.Issue != nil {
				issue = fmt.Sprintf("#%d", *t.Issue)
			}
			fmt.Printf("  %s  %-6s %s -> %s\n", t.OccurredAt.Format(time.RFC3339), issue, t.From, t.To)
		}
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var issue int
	if _, err := fmt.Sscanf(args[0], "%d", &issue); err != nil {
		return fmt.Errorf("invalid issue number %q", args[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer eng.close()

	plan, err := eng.manager.Plan(ctx, issue)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("no plan for issue %d", issue)
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
