// Package cycle runs the dispatch -> parse -> emit loop.
package cycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skovert/sentinel/internal/audit"
	"github.com/skovert/sentinel/internal/backend"
	"github.com/skovert/sentinel/internal/dispatch"
	"github.com/skovert/sentinel/internal/emitter"
	"github.com/skovert/sentinel/internal/issues"
	"github.com/skovert/sentinel/internal/models"
	"github.com/skovert/sentinel/internal/parser"
	"github.com/skovert/sentinel/internal/registry"
	"github.com/skovert/sentinel/internal/store"
)

// Scheduler drives the Idle -> Dispatching -> Aggregating -> Emitting ->
// Cooldown loop. It runs until stopped; per-task and per-finding failures
// never escalate past their owning phase.
type Scheduler struct {
	registry   *registry.Registry
	backend    backend.Backend
	service    issues.Service
	dispatcher *dispatch.Dispatcher
	emitter    *emitter.Emitter
	store      *store.Store
	trail      *audit.Trail

	cooldown time.Duration
	grace    time.Duration

	mu        sync.Mutex
	phase     models.CyclePhase
	lastCycle *models.CycleSummary
	cyclesRun int

	// ctx cancels in-flight workers; stopCh stops the loop first so workers
	// get the shutdown grace period to finish.
	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Options configures a scheduler.
type Options struct {
	Cooldown      time.Duration
	ShutdownGrace time.Duration
}

// New creates a scheduler from already-constructed components.
func New(reg *registry.Registry, b backend.Backend, svc issues.Service, d *dispatch.Dispatcher, e *emitter.Emitter, s *store.Store, trail *audit.Trail, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry:   reg,
		backend:    b,
		service:    svc,
		dispatcher: d,
		emitter:    e,
		store:      s,
		trail:      trail,
		cooldown:   opts.Cooldown,
		grace:      opts.ShutdownGrace,
		phase:      models.PhaseIdle,
		ctx:        ctx,
		cancel:     cancel,
		stopCh:     make(chan struct{}),
	}
}

// Preflight verifies every external collaborator is usable. A failure here
// is fatal to the run: no task could possibly succeed, so the process must
// exit rather than degrade.
func (sch *Scheduler) Preflight(ctx context.Context) error {
	if err := sch.backend.Ping(ctx); err != nil {
		sch.trail.Error("", "startup.preflight", "inference backend %s unreachable: %v", sch.backend.Name(), err)
		return fmt.Errorf("preflight backend %s: %w", sch.backend.Name(), err)
	}
	if err := sch.service.Ping(ctx); err != nil {
		sch.trail.Error("", "startup.preflight", "issue service %s unreachable: %v", sch.service.Name(), err)
		return fmt.Errorf("preflight issue service %s: %w", sch.service.Name(), err)
	}
	sch.trail.Success("", "startup.preflight", "backend %s and issue service %s reachable, %d tasks registered",
		sch.backend.Name(), sch.service.Name(), sch.registry.Len())
	return nil
}

// Start begins the scheduler loop.
func (sch *Scheduler) Start() {
	sch.wg.Add(1)
	go sch.loop()
	log.Println("Cycle scheduler started")
}

// Stop shuts the scheduler down. The loop stops scheduling new cycles
// immediately; an in-flight cycle gets the shutdown grace period to finish
// before its workers are killed.
func (sch *Scheduler) Stop() {
	sch.stopOnce.Do(func() {
		close(sch.stopCh)

		done := make(chan struct{})
		go func() {
			sch.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(sch.grace):
			log.Printf("Shutdown grace of %s elapsed, killing in-flight workers", sch.grace)
			sch.cancel()
			<-done
		}
		sch.cancel()
		log.Println("Cycle scheduler stopped")
	})
}

// loop runs cycles separated by the fixed cooldown. The cooldown is
// measured from the end of emitting, not the start of dispatch, matching
// the deployed behavior this replaces.
func (sch *Scheduler) loop() {
	defer sch.wg.Done()

	for {
		select {
		case <-sch.stopCh:
			sch.setPhase(models.PhaseIdle)
			return
		default:
		}

		sch.RunCycle(sch.ctx)

		sch.setPhase(models.PhaseCooldown)
		sch.trail.Info("", "cycle.cooldown", "sleeping %s until next cycle", sch.cooldown)

		select {
		case <-sch.stopCh:
			sch.setPhase(models.PhaseIdle)
			return
		case <-time.After(sch.cooldown):
		}
	}
}

// RunCycle executes exactly one dispatch -> parse -> emit pass and returns
// its summary. Also used directly for one-shot runs.
func (sch *Scheduler) RunCycle(ctx context.Context) models.CycleSummary {
	cycleID := uuid.New().String()
	tasks := sch.registry.List()
	started := time.Now().UTC()

	// Dispatch
	sch.setPhase(models.PhaseDispatching)
	sch.trail.Info(cycleID, "cycle.dispatch.start", "dispatching %d tasks", len(tasks))
	dispatchStart := time.Now()
	results := sch.dispatcher.Dispatch(ctx, tasks)
	sch.trail.Info(cycleID, "cycle.dispatch.end", "all %d workers joined in %s", len(results), time.Since(dispatchStart).Round(time.Millisecond))

	summary := models.CycleSummary{
		ID:         cycleID,
		StartedAt:  started,
		TasksTotal: len(tasks),
	}
	for _, task := range tasks {
		res := results[task.Name]
		switch res.ExitStatus {
		case models.ExitSuccess:
			summary.TasksSucceeded++
			sch.trail.Success(cycleID, "worker.done", "task %s finished in %s", task.Name, res.Duration.Round(time.Millisecond))
		case models.ExitTimeout:
			summary.TasksTimedOut++
			sch.trail.Warn(cycleID, "worker.timeout", "task %s exceeded %s", task.Name, task.Timeout)
		default:
			summary.TasksFailed++
			sch.trail.Warn(cycleID, "worker.error", "task %s failed after %s", task.Name, res.Duration.Round(time.Millisecond))
		}
	}

	// Aggregate, preserving registry order across tasks and source line
	// order within one task's output.
	sch.setPhase(models.PhaseAggregating)
	aggStart := time.Now()
	var findings []models.Finding
	for _, task := range tasks {
		parsed := parser.Parse(results[task.Name])
		if len(parsed) == 0 && results[task.Name].ExitStatus == models.ExitSuccess {
			sch.trail.Info(cycleID, "parse.empty", "task %s produced no findings", task.Name)
		}
		findings = append(findings, parsed...)
	}
	summary.FindingsTotal = len(findings)
	sch.trail.Info(cycleID, "cycle.aggregate.end", "%d findings from %d tasks in %s",
		len(findings), len(tasks), time.Since(aggStart).Round(time.Millisecond))

	// Emit
	sch.setPhase(models.PhaseEmitting)
	emitStart := time.Now()
	if removed, err := sch.emitter.PurgeExpired(); err != nil {
		log.Printf("Purge expired idempotency entries: %v", err)
	} else if removed > 0 {
		sch.trail.Info(cycleID, "dedup.purge", "%d expired idempotency entries removed", removed)
	}
	stats := sch.emitter.EmitAll(ctx, cycleID, findings)
	summary.IssuesCreated = len(stats.Created)
	summary.IssuesSkipped = stats.Skipped
	summary.EmitFailures = stats.Failures
	sch.trail.Info(cycleID, "cycle.emit.end", "%d created, %d skipped, %d failed in %s",
		summary.IssuesCreated, summary.IssuesSkipped, summary.EmitFailures, time.Since(emitStart).Round(time.Millisecond))

	summary.EndedAt = time.Now().UTC()
	summary.Duration = summary.EndedAt.Sub(summary.StartedAt)

	if err := sch.store.RecordCycle(summary); err != nil {
		log.Printf("Record cycle summary: %v", err)
	}

	sev := audit.SeveritySuccess
	if summary.TasksFailed+summary.TasksTimedOut+summary.EmitFailures > 0 {
		sev = audit.SeverityWarn
	}
	sch.trail.Record(sev, "cycle.complete",
		fmt.Sprintf("tasks %d ok / %d timeout / %d error, %d findings, %d issues created, %d emit failures, took %s",
			summary.TasksSucceeded, summary.TasksTimedOut, summary.TasksFailed,
			summary.FindingsTotal, summary.IssuesCreated, summary.EmitFailures,
			summary.Duration.Round(time.Millisecond)),
		cycleID)

	sch.mu.Lock()
	sch.lastCycle = &summary
	sch.cyclesRun++
	sch.mu.Unlock()

	return summary
}

// Tasks returns the registered task ensemble.
func (sch *Scheduler) Tasks() []models.Task {
	return sch.registry.List()
}

func (sch *Scheduler) setPhase(p models.CyclePhase) {
	sch.mu.Lock()
	sch.phase = p
	sch.mu.Unlock()
}

// Stats is a point-in-time view of the scheduler for the status API and TUI.
type Stats struct {
	Phase     models.CyclePhase    `json:"phase"`
	CyclesRun int                  `json:"cycles_run"`
	LastCycle *models.CycleSummary `json:"last_cycle,omitempty"`
}

// GetStats returns the current scheduler state.
func (sch *Scheduler) GetStats() Stats {
	sch.mu.Lock()
	defer sch.mu.Unlock()

	stats := Stats{
		Phase:     sch.phase,
		CyclesRun: sch.cyclesRun,
	}
	if sch.lastCycle != nil {
		c := *sch.lastCycle
		stats.LastCycle = &c
	}
	return stats
}
