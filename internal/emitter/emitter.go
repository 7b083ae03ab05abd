// Package emitter converts findings into external issue creations with
// cross-cycle idempotency.
package emitter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/skovert/sentinel/internal/audit"
	"github.com/skovert/sentinel/internal/issues"
	"github.com/skovert/sentinel/internal/models"
	"github.com/skovert/sentinel/internal/store"
)

// Stats summarizes one emission batch.
type Stats struct {
	Created  []models.EmittedIssue
	Skipped  int
	Failures int
}

// Emitter files findings as issues, suppressing duplicates seen within the
// dedup window.
type Emitter struct {
	service     issues.Service
	store       *store.Store
	trail       *audit.Trail
	dedupWindow time.Duration
}

// New creates an emitter.
func New(service issues.Service, s *store.Store, trail *audit.Trail, dedupWindow time.Duration) *Emitter {
	return &Emitter{
		service:     service,
		store:       s,
		trail:       trail,
		dedupWindow: dedupWindow,
	}
}

// dedupKey identifies a finding across cycles. Two findings with the same
// title and location are the same issue regardless of which task reported
// them or how the rationale varies.
func dedupKey(f models.Finding) string {
	hash := sha256.Sum256([]byte(f.Title + "|" + f.Location))
	return hex.EncodeToString(hash[:])
}

// Emit files one finding. Returns the created issue, or (nil, nil) when a
// live idempotency entry suppressed the creation.
func (e *Emitter) Emit(ctx context.Context, f models.Finding) (*models.EmittedIssue, error) {
	key := dedupKey(f)
	cutoff := time.Now().UTC().Add(-e.dedupWindow)

	existing, err := e.store.GetIssueSince(key, cutoff)
	if err != nil {
		// A broken cache must not block emission; worst case we file a
		// duplicate, which is the source behavior anyway.
		log.Printf("Emitter: idempotency lookup failed, continuing: %v", err)
	}
	if existing != nil {
		return nil, nil
	}

	title := fmt.Sprintf("[%s] %s", f.Priority, f.Title)
	externalID, err := e.service.Create(ctx, title, buildBody(f), buildLabels(f))
	if err != nil {
		return nil, fmt.Errorf("emit finding %q: %w", f.Title, err)
	}

	created := time.Now().UTC()
	if err := e.store.RecordIssue(models.IssueRecord{
		Key:        key,
		ExternalID: externalID,
		Title:      title,
		Location:   f.Location,
		Priority:   f.Priority,
		SourceTask: f.SourceTask,
		CreatedAt:  created,
	}); err != nil {
		log.Printf("Emitter: record idempotency entry: %v", err)
	}

	return &models.EmittedIssue{
		Finding:    f,
		ExternalID: externalID,
		CreatedAt:  created,
	}, nil
}

// EmitAll files every finding in order. A failed creation is counted and
// audited, never aborts the rest of the batch.
func (e *Emitter) EmitAll(ctx context.Context, cycleID string, findings []models.Finding) Stats {
	var stats Stats
	for _, f := range findings {
		issue, err := e.Emit(ctx, f)
		switch {
		case err != nil:
			stats.Failures++
			e.trail.Error(cycleID, "issue.create.failed", "%s: %v", f.Title, err)
		case issue == nil:
			stats.Skipped++
			e.trail.Info(cycleID, "issue.create.skipped", "duplicate within window: %s", f.Title)
		default:
			stats.Created = append(stats.Created, *issue)
			e.trail.Success(cycleID, "issue.create", "%s -> %s", issue.Finding.Title, issue.ExternalID)
		}
	}
	return stats
}

// PurgeExpired drops idempotency entries older than the dedup window.
func (e *Emitter) PurgeExpired() (int64, error) {
	return e.store.PurgeIssuesBefore(time.Now().UTC().Add(-e.dedupWindow))
}

// buildBody renders the issue body from the finding fields.
func buildBody(f models.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Location:** %s\n\n", orNone(f.Location))
	fmt.Fprintf(&b, "**Recommended action:** %s\n\n", orNone(f.Action))
	if f.Rationale != "" {
		fmt.Fprintf(&b, "**Model rationale:**\n\n%s\n\n", f.Rationale)
	}
	fmt.Fprintf(&b, "---\nReported by ensemble task `%s`.\n", f.SourceTask)
	return b.String()
}

func buildLabels(f models.Finding) []string {
	return []string{"autonomous-agent", f.Priority.Label(), "ensemble-" + f.SourceTask}
}

func orNone(s string) string {
	if s == "" {
		return "(not specified)"
	}
	return s
}
