// Package ollamaexec runs prompts through a local ollama binary.
package ollamaexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/skovert/sentinel/internal/backend"
)

// OllamaExec implements the Backend interface by shelling out to ollama.
type OllamaExec struct {
	bin     string
	workDir string
}

// New creates an OllamaExec backend. bin is the ollama executable; an empty
// string falls back to "ollama" on PATH.
func New(bin, workDir string) *OllamaExec {
	if bin == "" {
		bin = "ollama"
	}
	return &OllamaExec{bin: bin, workDir: workDir}
}

// Name returns the backend identifier.
func (o *OllamaExec) Name() string {
	return "ollama"
}

// Ping checks the ollama daemon is reachable by listing installed models.
func (o *OllamaExec) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, o.bin, "list")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v", backend.ErrUnavailable, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Run executes the prompt against the given model. The prompt is fed on
// stdin so size and quoting never hit argv limits. The returned result
// carries stdout/stderr even on non-zero exit.
func (o *OllamaExec) Run(ctx context.Context, model, prompt string) (*backend.RunResult, error) {
	execCmd := exec.CommandContext(ctx, o.bin, "run", model)
	if o.workDir != "" {
		execCmd.Dir = o.workDir
	}
	execCmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			exitCode = exitError.ExitCode()
		} else {
			return nil, fmt.Errorf("exec error: %w", err)
		}
	}

	return &backend.RunResult{
		Model:    model,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
