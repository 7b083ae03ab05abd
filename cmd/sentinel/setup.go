package main

import (
	"os"

	"github.com/skovert/sentinel/internal/audit"
	"github.com/skovert/sentinel/internal/backend/ollamaexec"
	"github.com/skovert/sentinel/internal/config"
	"github.com/skovert/sentinel/internal/cycle"
	"github.com/skovert/sentinel/internal/dispatch"
	"github.com/skovert/sentinel/internal/emitter"
	"github.com/skovert/sentinel/internal/issues"
	"github.com/skovert/sentinel/internal/issues/ghcli"
	"github.com/skovert/sentinel/internal/registry"
	"github.com/skovert/sentinel/internal/store"
)

// components holds everything a command needs wired together.
type components struct {
	cfg       *config.Config
	store     *store.Store
	trail     *audit.Trail
	scheduler *cycle.Scheduler
}

// buildComponents constructs the full pipeline from configuration. The
// caller owns closing the store.
func buildComponents() (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	trail, err := audit.New(cfg.AuditLogPath, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	var reg *registry.Registry
	if cfg.TasksFile != "" {
		reg, err = registry.LoadFile(cfg.TasksFile, cfg.TaskTimeout)
	} else {
		reg, err = registry.New(registry.DefaultTasks(cfg.TaskTimeout))
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	workDir, _ := os.Getwd()
	b := ollamaexec.New(cfg.OllamaBin, workDir)

	var svc issues.Service
	if cfg.DryRun {
		svc = issues.NewLogOnly()
	} else {
		svc = ghcli.New(cfg.GHBin, cfg.Repo)
	}

	d := dispatch.New(b, cfg.MaxConcurrent)
	e := emitter.New(svc, s, trail, cfg.DedupWindow)
	sch := cycle.New(reg, b, svc, d, e, s, trail, cycle.Options{
		Cooldown:      cfg.Cooldown,
		ShutdownGrace: cfg.ShutdownGrace,
	})

	return &components{
		cfg:       cfg,
		store:     s,
		trail:     trail,
		scheduler: sch,
	}, nil
}
