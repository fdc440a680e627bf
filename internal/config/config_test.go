package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.General.StateDir != ".claude-workflow" {
		t.Errorf("StateDir = %q, want .claude-workflow", cfg.General.StateDir)
	}
	if cfg.General.PlanCacheSize != 30 {
		t.Errorf("PlanCacheSize = %d, want 30", cfg.General.PlanCacheSize)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.IPC.SocketURL != "" {
		t.Errorf("SocketURL = %q, want empty (file provider)", cfg.IPC.SocketURL)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.DebounceMs != 200 {
		t.Errorf("DebounceMs = %d, want default 200", cfg.General.DebounceMs)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[general]
project_root = "/work/proj"
plan_cache_size = 10

[ipc]
socket_url = "ws://127.0.0.1:9400/events"

[resync]
cron = "*/15 * * * *"

[web]
port = 9090
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.ProjectRoot != "/work/proj" {
		t.Errorf("ProjectRoot = %q", cfg.General.ProjectRoot)
	}
	if cfg.General.PlanCacheSize != 10 {
		t.Errorf("PlanCacheSize = %d, want 10", cfg.General.PlanCacheSize)
	}
	if cfg.IPC.SocketURL != "ws://127.0.0.1:9400/events" {
		t.Errorf("SocketURL = %q", cfg.IPC.SocketURL)
	}
	if cfg.Resync.Cron != "*/15 * * * *" {
		t.Errorf("Cron = %q", cfg.Resync.Cron)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Web.Port)
	}
	// Unset fields keep their defaults.
	if cfg.General.StateDir != ".claude-workflow" {
		t.Errorf("StateDir = %q, want default", cfg.General.StateDir)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := ExpandPath("~/data/history.db"); got != filepath.Join(home, "data", "history.db") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("Absolute path changed: %q", got)
	}
}
