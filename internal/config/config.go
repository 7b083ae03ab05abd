// Package config holds the environment-driven runtime configuration for Sentinel.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variable names understood by Load.
const (
	EnvDBPath         = "SENTINEL_DB"
	EnvAuditLog       = "SENTINEL_AUDIT_LOG"
	EnvTasksFile      = "SENTINEL_TASKS_FILE"
	EnvRepo           = "SENTINEL_REPO"
	EnvCooldown       = "SENTINEL_COOLDOWN"
	EnvTaskTimeout    = "SENTINEL_TASK_TIMEOUT"
	EnvMaxConcurrent  = "SENTINEL_MAX_CONCURRENT"
	EnvDedupWindow    = "SENTINEL_DEDUP_WINDOW"
	EnvShutdownGrace  = "SENTINEL_SHUTDOWN_GRACE"
	EnvStatusAddr     = "SENTINEL_STATUS_ADDR"
	EnvOllamaBin      = "SENTINEL_OLLAMA_BIN"
	EnvGHBin          = "SENTINEL_GH_BIN"
	EnvDryRun         = "SENTINEL_DRY_RUN"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string
	// AuditLogPath is the append-only audit trail file.
	AuditLogPath string
	// TasksFile is an optional YAML task manifest; empty means built-in defaults.
	TasksFile string
	// Repo is the GitHub repository (owner/name) issues are filed against.
	// Empty means the gh CLI's current-directory default.
	Repo string
	// Cooldown is the fixed sleep between the end of one cycle and the next dispatch.
	Cooldown time.Duration
	// TaskTimeout is the default per-task timeout when the manifest omits one.
	TaskTimeout time.Duration
	// MaxConcurrent caps simultaneous backend invocations per dispatch.
	MaxConcurrent int
	// DedupWindow bounds the lifetime of issue idempotency keys.
	DedupWindow time.Duration
	// ShutdownGrace is how long in-flight workers get after a stop signal.
	ShutdownGrace time.Duration
	// StatusAddr enables the status HTTP API when non-empty.
	StatusAddr string
	// OllamaBin is the inference backend binary.
	OllamaBin string
	// GHBin is the issue tracker CLI binary.
	GHBin string
	// DryRun routes emission to a logging-only issue service.
	DryRun bool
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".sentinel")
	return &Config{
		DBPath:        filepath.Join(base, "sentinel.db"),
		AuditLogPath:  filepath.Join(base, "audit.log"),
		Cooldown:      15 * time.Minute,
		TaskTimeout:   10 * time.Minute,
		MaxConcurrent: 3,
		DedupWindow:   24 * time.Hour,
		ShutdownGrace: 30 * time.Second,
		OllamaBin:     "ollama",
		GHBin:         "gh",
	}
}

// Load builds a Config from defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvAuditLog); v != "" {
		cfg.AuditLogPath = v
	}
	if v := os.Getenv(EnvTasksFile); v != "" {
		cfg.TasksFile = v
	}
	if v := os.Getenv(EnvRepo); v != "" {
		cfg.Repo = v
	}
	if v := os.Getenv(EnvStatusAddr); v != "" {
		cfg.StatusAddr = v
	}
	if v := os.Getenv(EnvOllamaBin); v != "" {
		cfg.OllamaBin = v
	}
	if v := os.Getenv(EnvGHBin); v != "" {
		cfg.GHBin = v
	}
	if v := os.Getenv(EnvDryRun); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvDryRun, err)
		}
		cfg.DryRun = dry
	}

	var err error
	if cfg.Cooldown, err = durationEnv(EnvCooldown, cfg.Cooldown); err != nil {
		return nil, err
	}
	if cfg.TaskTimeout, err = durationEnv(EnvTaskTimeout, cfg.TaskTimeout); err != nil {
		return nil, err
	}
	if cfg.DedupWindow, err = durationEnv(EnvDedupWindow, cfg.DedupWindow); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv(EnvShutdownGrace, cfg.ShutdownGrace); err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvMaxConcurrent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvMaxConcurrent, err)
		}
		cfg.MaxConcurrent = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants once at startup.
func (c *Config) Validate() error {
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %s", c.Cooldown)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("task timeout must be positive, got %s", c.TaskTimeout)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive, got %s", c.DedupWindow)
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must not be negative, got %s", c.ShutdownGrace)
	}
	return nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}
