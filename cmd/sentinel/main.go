package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - ensemble code review patrol",
	Long: `Sentinel repeatedly fans analysis prompts out to an ensemble of local
LLM backends, parses their output into structured findings, and files them
as GitHub issues with cross-cycle deduplication.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(findingsCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
