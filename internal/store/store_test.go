package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skovert/sentinel/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestCycleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	summary := models.CycleSummary{
		ID:             uuid.New().String(),
		StartedAt:      now.Add(-time.Minute),
		EndedAt:        now,
		TasksTotal:     3,
		TasksSucceeded: 1,
		TasksTimedOut:  1,
		TasksFailed:    1,
		FindingsTotal:  4,
		IssuesCreated:  3,
		IssuesSkipped:  1,
		EmitFailures:   0,
		Duration:       time.Minute,
	}

	if err := s.RecordCycle(summary); err != nil {
		t.Fatalf("RecordCycle failed: %v", err)
	}

	cycles, err := s.ListCycles(10)
	if err != nil {
		t.Fatalf("ListCycles failed: %v", err)
	}
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(cycles))
	}

	got := cycles[0]
	if got.ID != summary.ID {
		t.Errorf("Expected ID %s, got %s", summary.ID, got.ID)
	}
	if got.TasksTimedOut != 1 || got.FindingsTotal != 4 || got.IssuesCreated != 3 {
		t.Errorf("Counts did not round-trip: %+v", got)
	}
	if got.Duration != time.Minute {
		t.Errorf("Expected duration 1m, got %s", got.Duration)
	}
}

func TestListCyclesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		err := s.RecordCycle(models.CycleSummary{
			ID:        uuid.New().String(),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			EndedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
			Duration:  time.Minute,
		})
		if err != nil {
			t.Fatalf("RecordCycle failed: %v", err)
		}
	}

	cycles, err := s.ListCycles(2)
	if err != nil {
		t.Fatalf("ListCycles failed: %v", err)
	}
	if len(cycles) != 2 {
		t.Fatalf("Expected 2 cycles, got %d", len(cycles))
	}
	if !cycles[0].StartedAt.After(cycles[1].StartedAt) {
		t.Error("Cycles not ordered newest first")
	}
}

func TestIssueIdempotencyWindow(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	now := time.Now().UTC()
	rec := models.IssueRecord{
		Key:        "abc123",
		ExternalID: "https://github.com/acme/app/issues/42",
		Title:      "[HIGH] SQL Injection",
		Location:   "auth.py:10",
		Priority:   models.PriorityHigh,
		SourceTask: "security",
		CreatedAt:  now,
	}
	if err := s.RecordIssue(rec); err != nil {
		t.Fatalf("RecordIssue failed: %v", err)
	}

	// Inside the window the entry is live.
	got, err := s.GetIssueSince("abc123", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetIssueSince failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected live idempotency entry")
	}
	if got.ExternalID != rec.ExternalID {
		t.Errorf("Expected external ID %s, got %s", rec.ExternalID, got.ExternalID)
	}

	// Outside the window it no longer suppresses creation.
	got, err = s.GetIssueSince("abc123", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetIssueSince failed: %v", err)
	}
	if got != nil {
		t.Error("Expected no entry outside the window")
	}

	// Unknown key.
	got, err = s.GetIssueSince("missing", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetIssueSince failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil for unknown key")
	}
}

func TestRecordIssueReplacesStaleKey(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	old := models.IssueRecord{
		Key: "k", ExternalID: "issue-1", Title: "t", Priority: models.PriorityLow,
		SourceTask: "quality", CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	if err := s.RecordIssue(old); err != nil {
		t.Fatalf("RecordIssue failed: %v", err)
	}

	fresh := old
	fresh.ExternalID = "issue-2"
	fresh.CreatedAt = time.Now().UTC()
	if err := s.RecordIssue(fresh); err != nil {
		t.Fatalf("RecordIssue on existing key failed: %v", err)
	}

	got, err := s.GetIssueSince("k", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetIssueSince failed: %v", err)
	}
	if got == nil || got.ExternalID != "issue-2" {
		t.Errorf("Expected replaced entry issue-2, got %+v", got)
	}
}

func TestPurgeIssuesBefore(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	now := time.Now().UTC()
	for i, age := range []time.Duration{time.Hour, 25 * time.Hour, 48 * time.Hour} {
		err := s.RecordIssue(models.IssueRecord{
			Key:        uuid.New().String(),
			ExternalID: "issue",
			Title:      "t",
			Priority:   models.PriorityMedium,
			SourceTask: "quality",
			CreatedAt:  now.Add(-age),
		})
		if err != nil {
			t.Fatalf("RecordIssue %d failed: %v", i, err)
		}
	}

	removed, err := s.PurgeIssuesBefore(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeIssuesBefore failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 purged rows, got %d", removed)
	}

	recs, err := s.ListIssues(0)
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected 1 surviving issue, got %d", len(recs))
	}
}

func TestAuditEvents(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	cycleID := uuid.New().String()
	if _, err := s.AppendAuditEvent("INFO", "cycle.dispatch.start", "dispatching 3 tasks", cycleID); err != nil {
		t.Fatalf("AppendAuditEvent failed: %v", err)
	}
	if _, err := s.AppendAuditEvent("WARN", "worker.timeout", "task quality exceeded 10m", cycleID); err != nil {
		t.Fatalf("AppendAuditEvent failed: %v", err)
	}

	events, err := s.ListAuditEvents(10)
	if err != nil {
		t.Fatalf("ListAuditEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.CycleID != cycleID {
			t.Errorf("Expected cycle ID %s, got %s", cycleID, e.CycleID)
		}
		if e.ID == "" || e.Timestamp.IsZero() {
			t.Errorf("Event missing ID or timestamp: %+v", e)
		}
	}
}
