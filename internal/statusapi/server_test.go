package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/skovert/sentinel/internal/audit"
	"github.com/skovert/sentinel/internal/backend"
	"github.com/skovert/sentinel/internal/cycle"
	"github.com/skovert/sentinel/internal/dispatch"
	"github.com/skovert/sentinel/internal/emitter"
	"github.com/skovert/sentinel/internal/issues"
	"github.com/skovert/sentinel/internal/models"
	"github.com/skovert/sentinel/internal/registry"
	"github.com/skovert/sentinel/internal/store"
)

type stubBackend struct{}

func (stubBackend) Name() string                   { return "stub" }
func (stubBackend) Ping(ctx context.Context) error { return nil }
func (stubBackend) Run(ctx context.Context, model, prompt string) (*backend.RunResult, error) {
	return &backend.RunResult{Model: model, Stdout: "[LOW] Note | a.go:1 | tidy\n"}, nil
}

func newTestServer(t *testing.T) (*Server, *cycle.Scheduler, *store.Store) {
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

	reg, err := registry.New([]models.Task{
		{Name: "security", Model: "m", Prompt: "p", Timeout: time.Second},
	})
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	var b stubBackend
	svc := issues.NewLogOnly()
	sch := cycle.New(reg, b, svc, dispatch.New(b, 1), emitter.New(svc, s, trail, time.Hour), s, trail, cycle.Options{
		Cooldown:      time.Hour,
		ShutdownGrace: time.Second,
	})

	return NewServer(sch, s, "127.0.0.1:0"), sch, s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := get(t, srv.Router(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestStatusReflectsScheduler(t *testing.T) {
	srv, sch, _ := newTestServer(t)
	sch.RunCycle(context.Background())

	rec := get(t, srv.Router(), "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats cycle.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Decode status: %v", err)
	}
	if stats.CyclesRun != 1 {
		t.Errorf("Expected 1 cycle run, got %d", stats.CyclesRun)
	}
	if stats.LastCycle == nil || stats.LastCycle.FindingsTotal != 1 {
		t.Errorf("Expected last cycle with 1 finding, got %+v", stats.LastCycle)
	}
}

func TestCyclesAndFindingsEndpoints(t *testing.T) {
	srv, sch, _ := newTestServer(t)
	sch.RunCycle(context.Background())

	rec := get(t, srv.Router(), "/cycles?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("/cycles: expected 200, got %d", rec.Code)
	}
	var cycles []models.CycleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &cycles); err != nil {
		t.Fatalf("Decode cycles: %v", err)
	}
	if len(cycles) != 1 {
		t.Errorf("Expected 1 cycle, got %d", len(cycles))
	}

	rec = get(t, srv.Router(), "/findings")
	if rec.Code != http.StatusOK {
		t.Fatalf("/findings: expected 200, got %d", rec.Code)
	}
	var recs []models.IssueRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("Decode findings: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected 1 issue record, got %d", len(recs))
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv, sch, _ := newTestServer(t)
	sch.RunCycle(context.Background())

	rec := get(t, srv.Router(), "/audit?limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var events []models.AuditEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("Decode audit events: %v", err)
	}
	if len(events) == 0 {
		t.Error("Expected audit events after a cycle")
	}
}
