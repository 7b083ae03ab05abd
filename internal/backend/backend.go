// Package backend defines the inference backend boundary for Sentinel.
package backend

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the backend cannot be reached at all. A failed
// preflight with this error is fatal to the run.
var ErrUnavailable = errors.New("inference backend unavailable")

// RunResult holds the raw outcome of one inference invocation.
type RunResult struct {
	Model    string `json:"model"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Combined returns stdout and stderr concatenated, stdout first. Worker
// output is kept whole regardless of exit status to aid diagnosis.
func (r *RunResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Backend executes prompts against a named inference engine. Run blocks
// until the invocation finishes or ctx is cancelled; cancellation kills the
// underlying call.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Ping reports whether the backend is reachable and serving.
	Ping(ctx context.Context) error

	// Run executes prompt against model and returns the raw result.
	Run(ctx context.Context, model, prompt string) (*RunResult, error)
}
