package ollamaexec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/skovert/sentinel/internal/backend"
)

// fakeOllama writes a shell script that mimics the ollama CLI surface the
// backend touches: `list` exits 0, `run <model>` echoes stdin back.
func fakeOllama(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ollama script requires a POSIX shell")
	}
	script := `#!/bin/sh
case "$1" in
list) echo "NAME ID SIZE"; exit 0 ;;
run) cat; exit 0 ;;
esac
exit 1
`
	path := filepath.Join(t.TempDir(), "ollama")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ollama: %v", err)
	}
	return path
}

func TestName(t *testing.T) {
	o := New("", "")
	if o.Name() != "ollama" {
		t.Errorf("Expected name 'ollama', got %s", o.Name())
	}
}

func TestPing(t *testing.T) {
	o := New(fakeOllama(t), "")
	if err := o.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestPingUnavailable(t *testing.T) {
	o := New(filepath.Join(t.TempDir(), "missing-binary"), "")
	err := o.Ping(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing binary")
	}
	if !strings.Contains(err.Error(), backend.ErrUnavailable.Error()) {
		t.Errorf("Expected unavailable error, got: %v", err)
	}
}

func TestRunFeedsPromptOnStdin(t *testing.T) {
	o := New(fakeOllama(t), "")
	result, err := o.Run(context.Background(), "test-model", "review this code")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("Expected exit 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "review this code") {
		t.Errorf("Prompt did not round-trip through stdin: %q", result.Stdout)
	}
	if result.Model != "test-model" {
		t.Errorf("Expected model recorded, got %q", result.Model)
	}
}

func TestCombinedOutput(t *testing.T) {
	r := &backend.RunResult{Stdout: "out", Stderr: "err"}
	if got := r.Combined(); got != "out\nerr" {
		t.Errorf("Combined() = %q", got)
	}
	r = &backend.RunResult{Stderr: "only err"}
	if got := r.Combined(); got != "only err" {
		t.Errorf("Combined() = %q", got)
	}
}
