package main

import (
	"github.com/skovert/sentinel/internal/config"
	"github.com/skovert/sentinel/internal/store"
	"github.com/skovert/sentinel/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal monitor",
	Long:  `Opens a live view of recent cycles, created issues, and the audit trail.`,
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.New(s).Run()
}
