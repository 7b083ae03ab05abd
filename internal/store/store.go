// Package store provides SQLite-backed persistence for Sentinel: cycle
// history, the issue idempotency cache, and the audit event mirror.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/skovert/sentinel/internal/models"
	_ "modernc.org/sqlite"
)

// Store provides access to the Sentinel SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		tasks_total INTEGER NOT NULL,
		tasks_succeeded INTEGER NOT NULL,
		tasks_timed_out INTEGER NOT NULL,
		tasks_failed INTEGER NOT NULL,
		findings_total INTEGER NOT NULL,
		issues_created INTEGER NOT NULL,
		issues_skipped INTEGER NOT NULL,
		emit_failures INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issues (
		key TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		title TEXT NOT NULL,
		location TEXT,
		priority TEXT NOT NULL,
		source_task TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		severity TEXT NOT NULL,
		event TEXT NOT NULL,
		message TEXT,
		cycle_id TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_cycle_id ON audit_events(cycle_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Cycle Operations ---

// RecordCycle persists a completed cycle summary.
func (s *Store) RecordCycle(summary models.CycleSummary) error {
	_, err := s.db.Exec(
		`INSERT INTO cycles (id, started_at, ended_at, tasks_total, tasks_succeeded, tasks_timed_out, tasks_failed, findings_total, issues_created, issues_skipped, emit_failures, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.StartedAt, summary.EndedAt,
		summary.TasksTotal, summary.TasksSucceeded, summary.TasksTimedOut, summary.TasksFailed,
		summary.FindingsTotal, summary.IssuesCreated, summary.IssuesSkipped, summary.EmitFailures,
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// ListCycles returns the most recent cycle summaries, newest first.
func (s *Store) ListCycles(limit int) ([]models.CycleSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, ended_at, tasks_total, tasks_succeeded, tasks_timed_out, tasks_failed, findings_total, issues_created, issues_skipped, emit_failures, duration_ms
		 FROM cycles ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.CycleSummary
	for rows.Next() {
		var c models.CycleSummary
		var durationMS int64
		if err := rows.Scan(&c.ID, &c.StartedAt, &c.EndedAt,
			&c.TasksTotal, &c.TasksSucceeded, &c.TasksTimedOut, &c.TasksFailed,
			&c.FindingsTotal, &c.IssuesCreated, &c.IssuesSkipped, &c.EmitFailures,
			&durationMS); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// --- Issue Idempotency Operations ---

// RecordIssue persists an idempotency entry for a created issue. A key seen
// again after its previous entry expired replaces the stale row rather than
// erroring.
func (s *Store) RecordIssue(rec models.IssueRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO issues (key, external_id, title, location, priority, source_task, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET external_id = excluded.external_id, created_at = excluded.created_at`,
		rec.Key, rec.ExternalID, rec.Title, rec.Location, rec.Priority, rec.SourceTask, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

// GetIssueSince returns the idempotency entry for key if it was created at
// or after cutoff, or nil when no live entry exists.
func (s *Store) GetIssueSince(key string, cutoff time.Time) (*models.IssueRecord, error) {
	rec := &models.IssueRecord{}
	var location sql.NullString

	err := s.db.QueryRow(
		`SELECT key, external_id, title, location, priority, source_task, created_at
		 FROM issues WHERE key = ? AND created_at >= ?`,
		key, cutoff,
	).Scan(&rec.Key, &rec.ExternalID, &rec.Title, &location, &rec.Priority, &rec.SourceTask, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query issue: %w", err)
	}
	if location.Valid {
		rec.Location = location.String
	}
	return rec, nil
}

// PurgeIssuesBefore removes idempotency entries created before cutoff,
// keeping the cache bounded to the dedup window. Returns rows removed.
func (s *Store) PurgeIssuesBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM issues WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge issues: %w", err)
	}
	return res.RowsAffected()
}

// ListIssues returns the most recently created issues, newest first.
func (s *Store) ListIssues(limit int) ([]models.IssueRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT key, external_id, title, location, priority, source_task, created_at
		 FROM issues ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var recs []models.IssueRecord
	for rows.Next() {
		var rec models.IssueRecord
		var location sql.NullString
		if err := rows.Scan(&rec.Key, &rec.ExternalID, &rec.Title, &location, &rec.Priority, &rec.SourceTask, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		if location.Valid {
			rec.Location = location.String
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- Audit Operations ---

// AppendAuditEvent mirrors one audit trail line into the database so the
// status API and TUI can query recent events.
func (s *Store) AppendAuditEvent(severity, event, message, cycleID string) (*models.AuditEvent, error) {
	entry := &models.AuditEvent{
		ID:        uuid.New().String(),
		Severity:  severity,
		Event:     event,
		Message:   message,
		CycleID:   cycleID,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO audit_events (id, severity, event, message, cycle_id, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Severity, entry.Event, entry.Message, entry.CycleID, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit event: %w", err)
	}
	return entry, nil
}

// ListAuditEvents returns the most recent audit events, newest first.
func (s *Store) ListAuditEvents(limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, severity, event, message, cycle_id, timestamp
		 FROM audit_events ORDER BY timestamp DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var message, cycleID sql.NullString
		if err := rows.Scan(&e.ID, &e.Severity, &e.Event, &message, &cycleID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if message.Valid {
			e.Message = message.String
		}
		if cycleID.Valid {
			e.CycleID = cycleID.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
