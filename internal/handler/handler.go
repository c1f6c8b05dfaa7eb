// Package handler implements the synthesis job lifecycle: validate the
// request, stage its payloads into a scratch directory, build and run
// the bounded generation command, and collect the produced video. One
// invocation handles one job; the stages run strictly in sequence and
// every failure becomes an error result rather than a panic.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
)

// Handler runs synthesis jobs against a fixed runtime configuration.
// Safe for concurrent use; each invocation owns its scratch directory.
type Handler struct {
	cfg config.Config
	log *logger.Logger
}

// New creates a job handler.
func New(cfg config.Config, log *logger.Logger) *Handler {
	return &Handler{cfg: cfg, log: log.WithComponent("handler")}
}

// Result is the outcome of one job: a video payload on success, an
// error message (with any captured process output) on failure.
type Result struct {
	Video  string
	Error  string
	Stdout string
	Stderr string

	code errors.Code
}

// MarshalJSON keeps the wire contract: a result is either a video
// payload or an error, never both and never neither.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error  string `json:"error"`
			Stdout string `json:"stdout,omitempty"`
			Stderr string `json:"stderr,omitempty"`
		}{r.Error, r.Stdout, r.Stderr})
	}
	return json.Marshal(struct {
		Video string `json:"video"`
	}{r.Video})
}

// Failed reports whether the result is the error shape.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Code returns the error code of a failed result, or "" for success.
func (r Result) Code() errors.Code {
	if r.Error == "" {
		return ""
	}
	return r.code
}

// HTTPStatus maps the result to a response status for synchronous
// invocations.
func (r Result) HTTPStatus() int {
	if r.Error == "" {
		return http.StatusOK
	}
	return (&errors.Error{Code: r.code}).HTTPStatus()
}

// Validate runs request validation only, without staging payloads or
// launching anything. The async submit route uses it to reject bad
// requests before they reach the queue.
func (h *Handler) Validate(input json.RawMessage) error {
	_, err := ParseRequest(input, h.cfg)
	return err
}

// Handle runs one job from its raw input mapping and always returns a
// single-shape result. The scratch directory is removed on every exit
// path.
func (h *Handler) Handle(ctx context.Context, input json.RawMessage) Result {
	log := h.log.FromContext(ctx)

	req, err := ParseRequest(input, h.cfg)
	if err != nil {
		log.Warn("request rejected", "error", err.Error())
		return failure(err)
	}

	scratch, err := os.MkdirTemp(h.cfg.ScratchRoot, "s2v_")
	if err != nil {
		log.Error("scratch directory creation failed", "error", err.Error())
		return failure(errors.Internalf("Failed to create scratch directory: %v", err))
	}
	defer os.RemoveAll(scratch)

	staged, err := stageInputs(scratch, req)
	if err != nil {
		log.Warn("input staging failed", "error", err.Error())
		return failure(err)
	}

	args := buildCommand(h.cfg, req, staged)
	log.Info("starting generation",
		"size", req.Size,
		"steps", req.Steps,
		"seed", req.Seed,
		"pose_video", staged.PosePath != "",
	)

	start := time.Now()
	outcome, err := runGenerate(ctx, h.cfg, args)
	if err != nil {
		log.Error("generator failed to launch", "error", err.Error())
		return failure(errors.WrapWithCode(err, errors.CodeLaunch, "handler.run",
			fmt.Sprintf("Generation failed: %v", err)))
	}

	if outcome.TimedOut {
		log.Error("generation timed out", "timeout", h.cfg.GenerateTimeout.String())
		return failure(errors.New(errors.CodeTimeout, timeoutMessage(h.cfg.GenerateTimeout)))
	}

	if outcome.ExitCode != 0 {
		log.Error("generation failed",
			"exit_code", outcome.ExitCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return failure(errors.Newf(errors.CodeGeneration, "Generation failed: %s", outcome.Stderr).
			WithField("stdout", outcome.Stdout))
	}

	video, err := collectOutput(staged, outcome)
	if err != nil {
		log.Error("output collection failed", "error", err.Error())
		return failure(err)
	}

	log.Info("generation completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"video_b64_len", len(video),
	)
	return Result{Video: video}
}

// failure converts a stage error into the error-shaped result, lifting
// captured process output out of the error fields.
func failure(err error) Result {
	res := Result{
		Error: errors.GetMessage(err),
		code:  errors.GetCode(err),
	}

	var e *errors.Error
	if errors.As(err, &e) {
		if s, ok := e.Fields["stdout"].(string); ok {
			res.Stdout = s
		}
		if s, ok := e.Fields["stderr"].(string); ok {
			res.Stderr = s
		}
	}
	return res
}

// timeoutMessage renders the deadline the way operators configured it,
// in whole minutes when possible.
func timeoutMessage(d time.Duration) string {
	if m := d.Minutes(); m >= 1 && m == math.Trunc(m) {
		if m == 1 {
			return "Generation timed out (1 minute)"
		}
		return fmt.Sprintf("Generation timed out (%.0f minutes)", m)
	}
	return fmt.Sprintf("Generation timed out (%s)", d)
}
