// Package ghcli files GitHub issues through the gh command line tool.
package ghcli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/skovert/sentinel/internal/issues"
)

// GHCLI implements the Service interface by shelling out to gh.
type GHCLI struct {
	bin  string
	repo string
}

// New creates a GHCLI service. bin is the gh executable, empty means "gh"
// on PATH. repo is "owner/name"; empty lets gh resolve it from the working
// directory.
func New(bin, repo string) *GHCLI {
	if bin == "" {
		bin = "gh"
	}
	return &GHCLI{bin: bin, repo: repo}
}

// Name returns the service identifier.
func (g *GHCLI) Name() string {
	return "github"
}

// Ping verifies gh is present and authenticated.
func (g *GHCLI) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, g.bin, "auth", "status")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %v", issues.ErrServiceUnavailable, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Create files one issue and returns the issue URL gh prints on success.
// Any failure wraps ErrServiceUnavailable so callers can classify it.
func (g *GHCLI) Create(ctx context.Context, title, body string, labels []string) (string, error) {
	args := []string{"issue", "create", "--title", title, "--body", body}
	if g.repo != "" {
		args = append(args, "--repo", g.repo)
	}
	for _, label := range labels {
		args = append(args, "--label", label)
	}

	execCmd := exec.CommandContext(ctx, g.bin, args...)

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	if err := execCmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("%w: create issue: %s: %v", issues.ErrServiceUnavailable, detail, err)
	}

	// gh prints the created issue URL on the last stdout line.
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	externalID := strings.TrimSpace(lines[len(lines)-1])
	if externalID == "" {
		return "", fmt.Errorf("%w: create issue: empty response", issues.ErrServiceUnavailable)
	}
	return externalID, nil
}
