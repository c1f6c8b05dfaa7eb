package handler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
)

func execConfig(t *testing.T, timeout time.Duration) config.Config {
	return config.Config{
		PythonBin:       "sh",
		InferenceDir:    t.TempDir(),
		GenerateTimeout: timeout,
	}
}

func TestRunGenerateCleanExit(t *testing.T) {
	cfg := execConfig(t, 10*time.Second)

	out, err := runGenerate(context.Background(), cfg, []string{"-c", "echo from-stdout; echo from-stderr 1>&2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", out.ExitCode)
	}
	if out.TimedOut {
		t.Error("expected no timeout")
	}
	if !strings.Contains(out.Stdout, "from-stdout") {
		t.Errorf("expected captured stdout, got %q", out.Stdout)
	}
	if !strings.Contains(out.Stderr, "from-stderr") {
		t.Errorf("expected captured stderr, got %q", out.Stderr)
	}
}

func TestRunGenerateNonZeroExit(t *testing.T) {
	cfg := execConfig(t, 10*time.Second)

	out, err := runGenerate(context.Background(), cfg, []string{"-c", "echo boom 1>&2; exit 3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", out.ExitCode)
	}
	if out.TimedOut {
		t.Error("expected no timeout")
	}
	if !strings.Contains(out.Stderr, "boom") {
		t.Errorf("expected captured stderr, got %q", out.Stderr)
	}
}

func TestRunGenerateTimeout(t *testing.T) {
	cfg := execConfig(t, 200*time.Millisecond)

	start := time.Now()
	out, err := runGenerate(context.Background(), cfg, []string{"-c", "sleep 30"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.TimedOut {
		t.Fatal("expected timeout")
	}
	// The child must be killed at the deadline, not waited out.
	if elapsed > 5*time.Second {
		t.Errorf("runGenerate took %s, child left running past deadline", elapsed)
	}
}

func TestRunGenerateKillsProcessGroup(t *testing.T) {
	cfg := execConfig(t, 200*time.Millisecond)

	// The shell spawns a grandchild; group kill must take both down
	// instead of waiting for the grandchild's sleep.
	start := time.Now()
	out, err := runGenerate(context.Background(), cfg, []string{"-c", "sleep 30 & wait"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.TimedOut {
		t.Fatal("expected timeout")
	}
	if elapsed > 5*time.Second {
		t.Errorf("runGenerate took %s, grandchild survived the group kill", elapsed)
	}
}

func TestRunGenerateLaunchFailure(t *testing.T) {
	cfg := config.Config{
		PythonBin:       "/nonexistent/python-binary",
		InferenceDir:    t.TempDir(),
		GenerateTimeout: time.Second,
	}

	out, err := runGenerate(context.Background(), cfg, []string{"generate.py"})
	if err == nil {
		t.Fatal("expected launch error")
	}
	if out != nil {
		t.Error("expected no outcome on launch failure")
	}
}

func TestRunGenerateWorkingDirectory(t *testing.T) {
	cfg := execConfig(t, 10*time.Second)

	marker := filepath.Join(cfg.InferenceDir, "marker.txt")
	if err := os.WriteFile(marker, []byte("inference-dir"), 0o644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}

	// A relative read only succeeds when the child runs in the
	// configured directory.
	out, err := runGenerate(context.Background(), cfg, []string{"-c", "cat marker.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.Stdout, "inference-dir") {
		t.Errorf("expected child to run in inference dir, stdout %q stderr %q", out.Stdout, out.Stderr)
	}
}
