// Package dispatch fans tasks out to the inference backend and joins on
// every worker.
package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/skovert/sentinel/internal/backend"
	"github.com/skovert/sentinel/internal/models"
)

// Dispatcher runs each task of a cycle on its own worker goroutine, bounded
// by a concurrency limit toward the backend.
type Dispatcher struct {
	backend       backend.Backend
	maxConcurrent int
}

// New creates a dispatcher. maxConcurrent caps simultaneous backend calls;
// values below 1 are raised to 1.
func New(b backend.Backend, maxConcurrent int) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Dispatcher{backend: b, maxConcurrent: maxConcurrent}
}

// Dispatch launches every task concurrently and returns once all of them
// have terminated. This is a hard join: a worker that times out or fails is
// recorded in its result and never aborts or delays the others. The returned
// map always has one entry per task.
func (d *Dispatcher) Dispatch(ctx context.Context, tasks []models.Task) map[string]models.WorkerResult {
	results := make([]models.WorkerResult, len(tasks))
	sem := make(chan struct{}, d.maxConcurrent)

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task models.Task) {
			defer wg.Done()

			// Admission to the backend is limited; a worker cancelled while
			// queued still produces a result.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = models.WorkerResult{
					TaskName:   task.Name,
					ExitStatus: models.ExitError,
					RawOutput:  "dispatch cancelled before start: " + ctx.Err().Error(),
				}
				return
			}

			results[i] = d.runWorker(ctx, task)
		}(i, task)
	}
	wg.Wait()

	out := make(map[string]models.WorkerResult, len(results))
	for _, res := range results {
		out[res.TaskName] = res
	}
	return out
}

// runWorker executes one task with its own timeout and classifies the
// outcome. Whatever output was buffered is kept regardless of status to aid
// diagnosis.
func (d *Dispatcher) runWorker(ctx context.Context, task models.Task) models.WorkerResult {
	start := time.Now()
	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	res, err := d.backend.Run(taskCtx, task.Model, task.Prompt)
	duration := time.Since(start)

	result := models.WorkerResult{
		TaskName: task.Name,
		Duration: duration,
	}
	if res != nil {
		result.RawOutput = res.Combined()
	}

	switch {
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		// The task's own budget expired; the backend call was killed.
		result.ExitStatus = models.ExitTimeout
		log.Printf("Worker %s timed out after %s", task.Name, task.Timeout)
	case err != nil:
		result.ExitStatus = models.ExitError
		if result.RawOutput == "" {
			result.RawOutput = err.Error()
		}
		log.Printf("Worker %s failed: %v", task.Name, err)
	case res.ExitCode != 0:
		result.ExitStatus = models.ExitError
		log.Printf("Worker %s exited with code %d", task.Name, res.ExitCode)
	default:
		result.ExitStatus = models.ExitSuccess
	}

	return result
}
