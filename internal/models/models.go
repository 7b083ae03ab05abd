// Package models defines the core domain types for Sentinel.
package models

import (
	"strings"
	"time"
)

// Priority classifies the urgency of a finding.
type Priority string

const (
	PriorityCritical    Priority = "CRITICAL"
	PriorityHigh        Priority = "HIGH"
	PriorityMedium      Priority = "MEDIUM"
	PriorityLow         Priority = "LOW"
	PriorityUnspecified Priority = "UNSPECIFIED"
)

// NormalizePriority maps a raw priority token to a known Priority.
// Unrecognized tokens fold into PriorityUnspecified rather than failing.
func NormalizePriority(token string) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(token))) {
	case PriorityCritical:
		return PriorityCritical
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityUnspecified
	}
}

// Label returns the lowercase form used for issue labels.
func (p Priority) Label() string {
	return strings.ToLower(string(p))
}

// Task is one named analysis unit bound to a backend model and prompt.
// Tasks are immutable once registered.
type Task struct {
	Name    string        `json:"name"`
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Timeout time.Duration `json:"timeout"`
}

// ExitStatus describes how a worker terminated.
type ExitStatus string

const (
	ExitSuccess ExitStatus = "success"
	ExitTimeout ExitStatus = "timeout"
	ExitError   ExitStatus = "error"
)

// WorkerResult holds the outcome of one task's execution within a cycle.
// It is owned by the cycle that produced it and discarded after parsing.
type WorkerResult struct {
	TaskName   string        `json:"task_name"`
	ExitStatus ExitStatus    `json:"exit_status"`
	RawOutput  string        `json:"raw_output"`
	Duration   time.Duration `json:"duration"`
}

// Finding is one structured issue candidate extracted from worker output.
// SourceTask is never empty.
type Finding struct {
	Priority   Priority `json:"priority"`
	Title      string   `json:"title"`
	Location   string   `json:"location"`
	Action     string   `json:"action"`
	Rationale  string   `json:"rationale,omitempty"`
	SourceTask string   `json:"source_task"`
}

// EmittedIssue records a successful external issue creation.
type EmittedIssue struct {
	Finding    Finding   `json:"finding"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// IssueRecord is a persisted idempotency entry for a created issue. Key is
// the hash of title and location; rows older than the dedup window are
// purged and no longer suppress re-creation.
type IssueRecord struct {
	Key        string    `json:"key"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	Location   string    `json:"location"`
	Priority   Priority  `json:"priority"`
	SourceTask string    `json:"source_task"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEvent is one persisted lifecycle event, mirroring a line of the
// append-only audit file.
type AuditEvent struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Event     string    `json:"event"`
	Message   string    `json:"message"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CyclePhase identifies where the scheduler is in its loop.
type CyclePhase string

const (
	PhaseIdle        CyclePhase = "idle"
	PhaseDispatching CyclePhase = "dispatching"
	PhaseAggregating CyclePhase = "aggregating"
	PhaseEmitting    CyclePhase = "emitting"
	PhaseCooldown    CyclePhase = "cooldown"
)

// CycleSummary aggregates one full dispatch->parse->emit iteration.
type CycleSummary struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at"`
	TasksTotal     int           `json:"tasks_total"`
	TasksSucceeded int           `json:"tasks_succeeded"`
	TasksTimedOut  int           `json:"tasks_timed_out"`
	TasksFailed    int           `json:"tasks_failed"`
	FindingsTotal  int           `json:"findings_total"`
	IssuesCreated  int           `json:"issues_created"`
	IssuesSkipped  int           `json:"issues_skipped"`
	EmitFailures   int           `json:"emit_failures"`
	Duration       time.Duration `json:"duration"`
}
