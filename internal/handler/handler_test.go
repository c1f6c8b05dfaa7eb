package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
)

// Stub generators. The handler launches them through PythonBin="sh",
// so each stands in for generate.py with a scriptable outcome. Every
// stub drops an invoked marker so tests can assert the program never
// ran.

const successScript = `printf x > invoked.txt
out=""
prev=""
for a in "$@"; do
  [ "$prev" = "--output_dir" ] && out="$a"
  prev="$a"
done
printf 'ten bytes!' > "$out/video_0001.mp4"
`

const failScript = `printf x > invoked.txt
echo "partial progress"
echo "CUDA out of memory" 1>&2
exit 1
`

const noOutputScript = `printf x > invoked.txt
echo "completed but wrote nothing"
echo "warn" 1>&2
exit 0
`

const sleepScript = `printf x > invoked.txt
sleep 30
`

func newTestHandler(t *testing.T, script string, timeout time.Duration) (*Handler, config.Config) {
	t.Helper()

	infDir := t.TempDir()
	if script != "" {
		if err := os.WriteFile(filepath.Join(infDir, "generate.py"), []byte(script), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Config{
		ModelDir:        "/models/Wan2.2-S2V-14B",
		DefaultSize:     "832*480",
		DefaultSteps:    30,
		OffloadModel:    true,
		GenerateTimeout: timeout,
		InferenceDir:    infDir,
		PythonBin:       "sh",
		ScratchRoot:     t.TempDir(),
	}

	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})

	return New(cfg, log), cfg
}

func validEvent() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"image_base64": %q, "audio_base64": %q}`,
		b64([]byte("jpeg-bytes")), b64([]byte("wav-bytes"))))
}

func assertNotInvoked(t *testing.T, cfg config.Config) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(cfg.InferenceDir, "invoked.txt")); !os.IsNotExist(err) {
		t.Error("the external program must not have been invoked")
	}
}

func assertScratchCleaned(t *testing.T, cfg config.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.ScratchRoot)
	if err != nil {
		t.Fatalf("failed to read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected scratch root to be empty, found %d entries", len(entries))
	}
}

func TestHandleSuccess(t *testing.T) {
	h, cfg := newTestHandler(t, successScript, 10*time.Second)

	res := h.Handle(context.Background(), validEvent())

	if res.Failed() {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.Video != b64([]byte("ten bytes!")) {
		t.Errorf("unexpected video payload: %q", res.Video)
	}
	if res.HTTPStatus() != http.StatusOK {
		t.Errorf("expected 200, got %d", res.HTTPStatus())
	}
	assertScratchCleaned(t, cfg)
}

func TestHandleMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "missing image",
			input:   fmt.Sprintf(`{"audio_base64": %q}`, b64([]byte("aud"))),
			wantMsg: "Missing required field: image_base64",
		},
		{
			name:    "missing audio",
			input:   fmt.Sprintf(`{"image_base64": %q}`, b64([]byte("img"))),
			wantMsg: "Missing required field: audio_base64",
		},
		{
			name:    "input is a list",
			input:   `[1, 2, 3]`,
			wantMsg: "Invalid request: missing 'input' field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, cfg := newTestHandler(t, successScript, 10*time.Second)

			res := h.Handle(context.Background(), json.RawMessage(tt.input))

			if res.Error != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, res.Error)
			}
			if res.Video != "" {
				t.Error("failed result must not carry a video")
			}
			if res.HTTPStatus() != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", res.HTTPStatus())
			}
			assertNotInvoked(t, cfg)
			assertScratchCleaned(t, cfg)
		})
	}
}

func TestHandleNilInput(t *testing.T) {
	h, cfg := newTestHandler(t, successScript, 10*time.Second)

	res := h.Handle(context.Background(), nil)

	if res.Error != "Invalid request: missing 'input' field" {
		t.Errorf("unexpected error: %q", res.Error)
	}
	assertNotInvoked(t, cfg)
}

func TestHandleDecodeFailure(t *testing.T) {
	h, cfg := newTestHandler(t, successScript, 10*time.Second)

	event := fmt.Sprintf(`{"image_base64": "!!bad!!", "audio_base64": %q}`, b64([]byte("aud")))
	res := h.Handle(context.Background(), json.RawMessage(event))

	if !strings.HasPrefix(res.Error, "Failed to decode input: ") {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if res.Code() != errors.CodeDecode {
		t.Errorf("expected DECODE_ERROR, got %s", res.Code())
	}
	if res.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", res.HTTPStatus())
	}
	assertNotInvoked(t, cfg)
	assertScratchCleaned(t, cfg)
}

func TestHandleGenerationFailure(t *testing.T) {
	h, cfg := newTestHandler(t, failScript, 10*time.Second)

	res := h.Handle(context.Background(), validEvent())

	if !strings.HasPrefix(res.Error, "Generation failed: ") {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if !strings.Contains(res.Error, "CUDA out of memory") {
		t.Errorf("expected stderr in error, got %q", res.Error)
	}
	if !strings.Contains(res.Stdout, "partial progress") {
		t.Errorf("expected captured stdout, got %q", res.Stdout)
	}
	if res.Code() != errors.CodeGeneration {
		t.Errorf("expected GENERATION_ERROR, got %s", res.Code())
	}
	if res.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", res.HTTPStatus())
	}
	assertScratchCleaned(t, cfg)
}

func TestHandleTimeout(t *testing.T) {
	h, cfg := newTestHandler(t, sleepScript, 300*time.Millisecond)

	start := time.Now()
	res := h.Handle(context.Background(), validEvent())
	elapsed := time.Since(start)

	if res.Error != "Generation timed out (300ms)" {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if res.Code() != errors.CodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", res.Code())
	}
	if res.HTTPStatus() != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", res.HTTPStatus())
	}
	if elapsed > 5*time.Second {
		t.Errorf("Handle took %s, child not killed at deadline", elapsed)
	}
	assertScratchCleaned(t, cfg)
}

func TestHandleNoOutput(t *testing.T) {
	h, cfg := newTestHandler(t, noOutputScript, 10*time.Second)

	res := h.Handle(context.Background(), validEvent())

	if res.Error != "No output video generated" {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if !strings.Contains(res.Stdout, "completed but wrote nothing") {
		t.Errorf("expected captured stdout, got %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "warn") {
		t.Errorf("expected captured stderr, got %q", res.Stderr)
	}
	if res.Code() != errors.CodeNoOutput {
		t.Errorf("expected NO_OUTPUT, got %s", res.Code())
	}
	assertScratchCleaned(t, cfg)
}

func TestHandlePoseVideoNeverReturned(t *testing.T) {
	// The generator writes nothing; the staged pose.mp4 matches the
	// output pattern but must not be mistaken for the artifact.
	h, cfg := newTestHandler(t, noOutputScript, 10*time.Second)

	event := fmt.Sprintf(`{"image_base64": %q, "audio_base64": %q, "pose_video_base64": %q}`,
		b64([]byte("img")), b64([]byte("aud")), b64([]byte("pose-bytes")))
	res := h.Handle(context.Background(), json.RawMessage(event))

	if res.Error != "No output video generated" {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if res.Video != "" {
		t.Error("staged pose video leaked as artifact")
	}
	assertScratchCleaned(t, cfg)
}

func TestHandleLaunchFailure(t *testing.T) {
	h, cfg := newTestHandler(t, "", 10*time.Second)
	h.cfg.PythonBin = "/nonexistent/python-binary"

	res := h.Handle(context.Background(), validEvent())

	if !strings.HasPrefix(res.Error, "Generation failed: ") {
		t.Errorf("unexpected error: %q", res.Error)
	}
	if res.Code() != errors.CodeLaunch {
		t.Errorf("expected LAUNCH_ERROR, got %s", res.Code())
	}
	if res.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", res.HTTPStatus())
	}
	assertScratchCleaned(t, cfg)
}

func TestValidate(t *testing.T) {
	h, cfg := newTestHandler(t, successScript, 10*time.Second)

	if err := h.Validate(validEvent()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := h.Validate(json.RawMessage(`{}`))
	if err == nil || errors.GetMessage(err) != "Missing required field: image_base64" {
		t.Errorf("unexpected error: %v", err)
	}
	assertNotInvoked(t, cfg)
}

func TestResultJSONShape(t *testing.T) {
	t.Run("success has only video", func(t *testing.T) {
		data, err := json.Marshal(Result{Video: "AAAA"})
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if len(m) != 1 || m["video"] != "AAAA" {
			t.Errorf("unexpected success shape: %s", data)
		}
	})

	t.Run("failure has error and captured streams", func(t *testing.T) {
		data, err := json.Marshal(Result{Error: "boom", Stdout: "out", Stderr: "err"})
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if m["error"] != "boom" || m["stdout"] != "out" || m["stderr"] != "err" {
			t.Errorf("unexpected failure shape: %s", data)
		}
		if _, ok := m["video"]; ok {
			t.Error("failure shape must not carry a video key")
		}
	})

	t.Run("failure without streams omits them", func(t *testing.T) {
		data, err := json.Marshal(Result{Error: "boom"})
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		if len(m) != 1 || m["error"] != "boom" {
			t.Errorf("unexpected failure shape: %s", data)
		}
	})

	t.Run("empty success still carries video key", func(t *testing.T) {
		data, err := json.Marshal(Result{})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"video"`) {
			t.Errorf("expected video key, got %s", data)
		}
	})
}

func TestHandleConcurrentJobs(t *testing.T) {
	// Invocations share nothing but the handler itself; each owns its
	// scratch directory.
	h, cfg := newTestHandler(t, successScript, 10*time.Second)

	const n = 4
	results := make(chan Result, n)
	for i := 0; i < n; i++ {
		go func() {
			results <- h.Handle(context.Background(), validEvent())
		}()
	}

	for i := 0; i < n; i++ {
		res := <-results
		if res.Failed() {
			t.Errorf("unexpected failure: %s", res.Error)
		}
	}
	assertScratchCleaned(t, cfg)
}
