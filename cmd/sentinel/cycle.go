package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run exactly one patrol cycle and exit",
	Long:  `Runs a single dispatch -> parse -> emit pass. Useful for smoke tests.`,
	RunE:  runOneCycle,
}

func runOneCycle(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.store.Close()

	preflightCtx, preflightCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = c.scheduler.Preflight(preflightCtx)
	preflightCancel()
	if err != nil {
		return err
	}

	summary := c.scheduler.RunCycle(context.Background())

	fmt.Printf("Cycle %s finished in %s\n", summary.ID, summary.Duration.Round(time.Millisecond))
	fmt.Printf("  tasks:    %d ok, %d timeout, %d error\n", summary.TasksSucceeded, summary.TasksTimedOut, summary.TasksFailed)
	fmt.Printf("  findings: %d\n", summary.FindingsTotal)
	fmt.Printf("  issues:   %d created, %d skipped, %d failed\n", summary.IssuesCreated, summary.IssuesSkipped, summary.EmitFailures)
	return nil
}
