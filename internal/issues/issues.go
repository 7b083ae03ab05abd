// Package issues defines the issue-tracker boundary for Sentinel.
package issues

import (
	"context"
	"errors"
)

// ErrServiceUnavailable indicates the tracker cannot be used at all
// (missing binary, failed auth). A failed preflight with this error is
// fatal to the run; a creation-time failure is counted and the cycle
// continues.
var ErrServiceUnavailable = errors.New("issue service unavailable")

// Service creates issues in an external tracker.
type Service interface {
	// Name returns the service identifier.
	Name() string

	// Ping reports whether the tracker is reachable and authenticated.
	Ping(ctx context.Context) error

	// Create files one issue and returns its external identifier.
	Create(ctx context.Context, title, body string, labels []string) (string, error)
}
