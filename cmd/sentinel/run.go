package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skovert/sentinel/internal/statusapi"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Sentinel daemon",
	Long: `Starts the patrol loop: dispatch the task ensemble, parse findings,
file issues, sleep through the cooldown, repeat. Runs until SIGINT/SIGTERM.`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting Sentinel daemon...")

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.store.Close()

	// Preflight is the one place a local failure aborts the whole run: if
	// no backend or tracker is reachable, no cycle could possibly succeed.
	preflightCtx, preflightCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = c.scheduler.Preflight(preflightCtx)
	preflightCancel()
	if err != nil {
		return err
	}

	var statusServer *statusapi.Server
	serverErr := make(chan error, 1)
	if c.cfg.StatusAddr != "" {
		statusServer = statusapi.NewServer(c.scheduler, c.store, c.cfg.StatusAddr)
		go func() {
			err := statusServer.Start()
			if err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
			close(serverErr)
		}()
	}

	c.scheduler.Start()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Status API error: %v", err)
			c.scheduler.Stop()
			return err
		}
	}

	c.scheduler.Stop()

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Status API shutdown error: %v", err)
		}
		shutdownCancel()
	}

	log.Println("Shutdown complete")
	return nil
}
