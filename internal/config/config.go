package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	IPC     IPCConfig     `toml:"ipc"`
	Resync  ResyncConfig  `toml:"resync"`
	Web     WebConfig     `toml:"web"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	ProjectRoot   string `toml:"project_root"`
	StateDir      string `toml:"state_dir"`
	DatabasePath  string `toml:"database_path"`
	PlanCacheSize int    `toml:"plan_cache_size"`
	DebounceMs    int    `toml:"debounce_ms"`
}

// IPCConfig holds event-socket settings. An empty URL selects the
// file-watching provider.
type IPCConfig struct {
	SocketURL string `toml:"socket_url"`
}

// ResyncConfig holds the periodic full-refresh schedule. An empty cron
// expression disables resync.
type ResyncConfig struct {
	Cron string `toml:"cron"`
}

// WebConfig holds web UI settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			ProjectRoot:   "",
			StateDir:      ".claude-workflow",
			DatabasePath:  filepath.Join(home, ".claude-exec-monitor", "history.db"),
			PlanCacheSize: 30,
			DebounceMs:    200,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.ProjectRoot = ExpandPath(cfg.General.ProjectRoot)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "claude-exec-monitor", "config.toml")
}
