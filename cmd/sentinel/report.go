package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportLimit int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show the registered task ensemble",
	RunE:  runTasks,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List recent patrol cycles",
	RunE:  runCycles,
}

var findingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "List recently created issues",
	RunE:  runFindings,
}

func init() {
	cyclesCmd.Flags().IntVar(&reportLimit, "limit", 20, "Maximum rows to show")
	findingsCmd.Flags().IntVar(&reportLimit, "limit", 50, "Maximum rows to show")
}

func runTasks(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tTIMEOUT")
	for _, task := range c.scheduler.Tasks() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", task.Name, task.Model, task.Timeout)
	}
	return w.Flush()
}

func runCycles(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.store.Close()

	cycles, err := c.store.ListCycles(reportLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOK\tTIMEOUT\tERROR\tFINDINGS\tCREATED\tSKIPPED\tFAILED\tDURATION")
	for _, cy := range cycles {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			cy.StartedAt.Local().Format(time.RFC3339),
			cy.TasksSucceeded, cy.TasksTimedOut, cy.TasksFailed,
			cy.FindingsTotal, cy.IssuesCreated, cy.IssuesSkipped, cy.EmitFailures,
			cy.Duration.Round(time.Second),
		)
	}
	return w.Flush()
}

func runFindings(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.store.Close()

	recs, err := c.store.ListIssues(reportLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tPRIORITY\tTITLE\tTASK\tISSUE")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.RFC3339),
			rec.Priority, rec.Title, rec.SourceTask, rec.ExternalID,
		)
	}
	return w.Flush()
}
