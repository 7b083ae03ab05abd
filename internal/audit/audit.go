// Package audit writes the append-only lifecycle trail for Sentinel.
//
// Every event becomes one timestamped line in a text file and, when a store
// is attached, a mirrored row the status API and TUI can query.
package audit

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skovert/sentinel/internal/store"
)

// Severity classifies an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarn    Severity = "WARN"
	SeverityError   Severity = "ERROR"
)

// Trail is an append-only audit log. Safe for concurrent use.
type Trail struct {
	path  string
	store *store.Store
	mu    sync.Mutex
}

// New creates a trail writing to path. store may be nil, in which case
// events are only written to the file.
func New(path string, s *store.Store) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}
	return &Trail{path: path, store: s}, nil
}

// Record appends one event. event names the lifecycle point (for example
// "cycle.dispatch.start"), message carries the human detail, cycleID ties
// the entry to a cycle and may be empty for process-level events.
// Trail failures are logged but never propagate; auditing must not be able
// to abort a cycle.
func (t *Trail) Record(sev Severity, event, message, cycleID string) {
	t.mu.Lock()
	line := fmt.Sprintf("%s %-7s %s %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(sev),
		event,
		strings.TrimSpace(message),
	)
	file, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.mu.Unlock()
		log.Printf("audit: open trail: %v", err)
	} else {
		if _, err := file.WriteString(line); err != nil {
			log.Printf("audit: write trail: %v", err)
		}
		file.Close()
		t.mu.Unlock()
	}

	if t.store != nil {
		if _, err := t.store.AppendAuditEvent(string(sev), event, message, cycleID); err != nil {
			log.Printf("audit: mirror event: %v", err)
		}
	}
}

// Info appends an informational entry.
func (t *Trail) Info(cycleID, event, format string, args ...any) {
	t.Record(SeverityInfo, event, fmt.Sprintf(format, args...), cycleID)
}

// Success appends a success entry.
func (t *Trail) Success(cycleID, event, format string, args ...any) {
	t.Record(SeveritySuccess, event, fmt.Sprintf(format, args...), cycleID)
}

// Warn appends a warning entry.
func (t *Trail) Warn(cycleID, event, format string, args ...any) {
	t.Record(SeverityWarn, event, fmt.Sprintf(format, args...), cycleID)
}

// Error appends an error entry.
func (t *Trail) Error(cycleID, event, format string, args ...any) {
	t.Record(SeverityError, event, fmt.Sprintf(format, args...), cycleID)
}

// Path returns the file backing this trail.
func (t *Trail) Path() string {
	return t.path
}
