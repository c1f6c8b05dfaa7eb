package handler

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
)

// Outcome captures how a generation run ended: the real exit code with
// both streams, or a timeout marker. A launch failure is returned as an
// error instead, never as an Outcome.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// runGenerate launches the external generator and waits for it, bounded
// by the configured wall-clock deadline. The child gets its own process
// group and the whole group is SIGKILLed on cancellation, so spawned
// descendants cannot outlive the job.
func runGenerate(ctx context.Context, cfg config.Config, args []string) (*Outcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, cfg.GenerateTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cfg.PythonBin, args...)
	cmd.Dir = cfg.InferenceDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative PID targets the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()

	out := &Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// The deadline check comes first: a killed child also reports a
	// non-zero exit, and the timeout must win that race.
	if runCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		return out, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		// Could not start at all: binary missing, permission denied.
		return nil, err
	}

	return out, nil
}
