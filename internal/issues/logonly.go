package issues

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
)

// LogOnly is a Service that logs creations instead of calling out. Used for
// dry runs during bring-up.
type LogOnly struct {
	seq atomic.Int64
}

// NewLogOnly creates a dry-run issue service.
func NewLogOnly() *LogOnly {
	return &LogOnly{}
}

// Name returns the service identifier.
func (l *LogOnly) Name() string {
	return "dry-run"
}

// Ping always succeeds.
func (l *LogOnly) Ping(ctx context.Context) error {
	return nil
}

// Create logs the issue and fabricates a sequential identifier.
func (l *LogOnly) Create(ctx context.Context, title, body string, labels []string) (string, error) {
	id := fmt.Sprintf("dry-run-%d", l.seq.Add(1))
	log.Printf("Dry run: would create issue %s %q labels=%v", id, title, labels)
	return id, nil
}
