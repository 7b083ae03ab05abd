package emitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skovert/sentinel/internal/audit"
	"github.com/skovert/sentinel/internal/issues"
	"github.com/skovert/sentinel/internal/models"
	"github.com/skovert/sentinel/internal/store"
)

// mockService records creations and can fail specific titles.
type mockService struct {
	mu       sync.Mutex
	created  []string
	labels   [][]string
	failWhen func(title string) bool
	seq      int
}

func (m *mockService) Name() string                   { return "mock" }
func (m *mockService) Ping(ctx context.Context) error { return nil }

func (m *mockService) Create(ctx context.Context, title, body string, labels []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWhen != nil && m.failWhen(title) {
		return "", fmt.Errorf("%w: network down", issues.ErrServiceUnavailable)
	}
	m.seq++
	m.created = append(m.created, title)
	m.labels = append(m.labels, labels)
	return fmt.Sprintf("issue-%d", m.seq), nil
}

func newTestEmitter(t *testing.T, svc issues.Service, window time.Duration) (*Emitter, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	trail, err := audit.New(filepath.Join(dir, "audit.log"), s)
	if err != nil {
		t.Fatalf("Failed to create trail: %v", err)
	}
	return New(svc, s, trail, window), s
}

func finding(title, location string) models.Finding {
	return models.Finding{
		Priority:   models.PriorityHigh,
		Title:      title,
		Location:   location,
		Action:     "fix it",
		SourceTask: "security",
	}
}

func TestEmitCreatesIssue(t *testing.T) {
	svc := &mockService{}
	e, s := newTestEmitter(t, svc, 24*time.Hour)

	issue, err := e.Emit(context.Background(), finding("SQL Injection", "auth.py:10"))
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if issue == nil {
		t.Fatal("Expected an emitted issue")
	}
	if issue.ExternalID != "issue-1" {
		t.Errorf("Unexpected external ID: %s", issue.ExternalID)
	}
	if svc.created[0] != "[HIGH] SQL Injection" {
		t.Errorf("Unexpected issue title: %q", svc.created[0])
	}

	wantLabels := []string{"autonomous-agent", "high", "ensemble-security"}
	for i, l := range wantLabels {
		if svc.labels[0][i] != l {
			t.Errorf("Label %d: expected %q, got %q", i, l, svc.labels[0][i])
		}
	}

	recs, err := s.ListIssues(10)
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected 1 idempotency entry, got %d", len(recs))
	}
}

func TestEmitDeduplicatesWithinWindow(t *testing.T) {
	svc := &mockService{}
	e, _ := newTestEmitter(t, svc, 24*time.Hour)
	ctx := context.Background()

	first, err := e.Emit(ctx, finding("SQL Injection", "auth.py:10"))
	if err != nil || first == nil {
		t.Fatalf("First emit failed: %v %v", first, err)
	}

	// Same title+location from a different task is still the same issue.
	dup := finding("SQL Injection", "auth.py:10")
	dup.SourceTask = "quality"
	second, err := e.Emit(ctx, dup)
	if err != nil {
		t.Fatalf("Second emit failed: %v", err)
	}
	if second != nil {
		t.Error("Expected duplicate to be suppressed")
	}
	if len(svc.created) != 1 {
		t.Errorf("Expected exactly 1 external creation, got %d", len(svc.created))
	}
}

func TestEmitDistinctLocationsAreDistinct(t *testing.T) {
	svc := &mockService{}
	e, _ := newTestEmitter(t, svc, 24*time.Hour)
	ctx := context.Background()

	if _, err := e.Emit(ctx, finding("Unchecked error", "a.go:1")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	issue, err := e.Emit(ctx, finding("Unchecked error", "b.go:2"))
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if issue == nil {
		t.Error("Different location should not be deduplicated")
	}
}

func TestEmitAllNeverAbortsBatch(t *testing.T) {
	svc := &mockService{
		failWhen: func(title string) bool { return strings.Contains(title, "Poison") },
	}
	e, _ := newTestEmitter(t, svc, 24*time.Hour)

	findings := []models.Finding{
		finding("First", "a.go:1"),
		finding("Poison", "b.go:2"),
		finding("Third", "c.go:3"),
		finding("Fourth", "d.go:4"),
	}
	stats := e.EmitAll(context.Background(), "cycle-1", findings)

	if len(stats.Created) != 3 {
		t.Errorf("Expected 3 created, got %d", len(stats.Created))
	}
	if stats.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.Failures)
	}
	if stats.Skipped != 0 {
		t.Errorf("Expected 0 skipped, got %d", stats.Skipped)
	}
	if len(svc.created) != 3 {
		t.Errorf("Expected the remaining findings attempted, got %d creations", len(svc.created))
	}
}

func TestEmitAllCountsSkips(t *testing.T) {
	svc := &mockService{}
	e, _ := newTestEmitter(t, svc, 24*time.Hour)

	findings := []models.Finding{
		finding("Same", "x.go:1"),
		finding("Same", "x.go:1"),
	}
	stats := e.EmitAll(context.Background(), "cycle-1", findings)

	if len(stats.Created) != 1 || stats.Skipped != 1 {
		t.Errorf("Expected 1 created and 1 skipped, got %d and %d", len(stats.Created), stats.Skipped)
	}
}

func TestPurgeExpired(t *testing.T) {
	svc := &mockService{}
	e, s := newTestEmitter(t, svc, time.Hour)

	stale := models.IssueRecord{
		Key: "old", ExternalID: "issue-0", Title: "t", Priority: models.PriorityLow,
		SourceTask: "quality", CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	if err := s.RecordIssue(stale); err != nil {
		t.Fatalf("RecordIssue failed: %v", err)
	}

	removed, err := e.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 purged entry, got %d", removed)
	}
}
