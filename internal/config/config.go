package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/tailscale/hujson"

	"github.com/zzfadi/CodexBar-sub002/internal/costusage"
	"github.com/zzfadi/CodexBar-sub002/internal/providers/shared"
)

const (
	defaultRefreshMinIntervalSeconds = 60
	defaultDays                      = 30
	maxDays                          = 366
)

type Config struct {
	RefreshMinIntervalSeconds int      `json:"refresh_min_interval_seconds"`
	DefaultDays               int      `json:"default_days"`
	CacheDir                  string   `json:"cache_dir,omitempty"`
	CodexSessionsRoot         string   `json:"codex_sessions_root,omitempty"`
	ClaudeProjectsRoots       []string `json:"claude_projects_roots,omitempty"`
	LogFile                   string   `json:"log_file,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		RefreshMinIntervalSeconds: defaultRefreshMinIntervalSeconds,
		DefaultDays:               defaultDays,
	}
}

func ConfigDir() string {
	base := xdg.ConfigHome
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "codexbar")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads a settings file. Comments and trailing commas are allowed.
// A missing file yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := json.Unmarshal(std, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.RefreshMinIntervalSeconds <= 0 {
		c.RefreshMinIntervalSeconds = defaultRefreshMinIntervalSeconds
	}
	if c.DefaultDays <= 0 {
		c.DefaultDays = defaultDays
	}
	if c.DefaultDays > maxDays {
		c.DefaultDays = maxDays
	}
	c.CacheDir = shared.ExpandHome(c.CacheDir)
	c.CodexSessionsRoot = shared.ExpandHome(c.CodexSessionsRoot)
	c.LogFile = shared.ExpandHome(c.LogFile)

	roots := c.ClaudeProjectsRoots[:0]
	for _, r := range c.ClaudeProjectsRoots {
		if r = shared.ExpandHome(r); strings.TrimSpace(r) != "" {
			roots = append(roots, r)
		}
	}
	if len(roots) == 0 {
		roots = nil
	}
	c.ClaudeProjectsRoots = roots
}

// ScanOptions maps the settings onto scanner options. Empty paths fall back
// to the scanner's environment-based defaults.
func (c Config) ScanOptions() costusage.Options {
	return costusage.Options{
		CodexSessionsRoot:   c.CodexSessionsRoot,
		ClaudeProjectsRoots: c.ClaudeProjectsRoots,
		CacheRoot:           c.CacheDir,
		RefreshMinInterval:  time.Duration(c.RefreshMinIntervalSeconds) * time.Second,
	}
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
