package handler

import (
	"encoding/json"
	"math"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
)

// defaultNegativePrompt is applied when a request does not set one.
const defaultNegativePrompt = "blurry, low quality, distorted"

// Request is the validated, default-filled input of one synthesis job.
type Request struct {
	ImageBase64     string
	AudioBase64     string
	Prompt          string
	NegativePrompt  string
	Size            string
	Steps           int
	CFG             float64
	Seed            int
	PoseVideoBase64 string
}

// ParseRequest validates the job input mapping and fills defaults. It
// performs no I/O. The input is the raw `input` member of the job
// envelope; nil, null, or any non-mapping shape is rejected.
func ParseRequest(input json.RawMessage, cfg config.Config) (*Request, error) {
	var fields map[string]json.RawMessage
	if len(input) == 0 || json.Unmarshal(input, &fields) != nil || fields == nil {
		return nil, errors.Validation("Invalid request: missing 'input' field")
	}

	req := &Request{}
	var err error

	if req.ImageBase64, err = requiredString(fields, "image_base64"); err != nil {
		return nil, err
	}
	if req.AudioBase64, err = requiredString(fields, "audio_base64"); err != nil {
		return nil, err
	}
	if req.Prompt, err = stringField(fields, "prompt", ""); err != nil {
		return nil, err
	}
	if req.NegativePrompt, err = stringField(fields, "negative_prompt", defaultNegativePrompt); err != nil {
		return nil, err
	}
	if req.Size, err = stringField(fields, "size", cfg.DefaultSize); err != nil {
		return nil, err
	}
	if req.Steps, err = intField(fields, "steps", cfg.DefaultSteps); err != nil {
		return nil, err
	}
	if req.CFG, err = numberField(fields, "cfg", 5.0); err != nil {
		return nil, err
	}
	if req.Seed, err = intField(fields, "seed", -1); err != nil {
		return nil, err
	}
	if req.PoseVideoBase64, err = stringField(fields, "pose_video_base64", ""); err != nil {
		return nil, err
	}

	return req, nil
}

// requiredString reads a field that must be present and a string.
func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", errors.Validationf("Missing required field: %s", name)
	}
	if string(raw) == "null" {
		return "", errors.Validationf("Invalid field: %s must be a string", name).WithField("field", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Validationf("Invalid field: %s must be a string", name).WithField("field", name)
	}
	return s, nil
}

// stringField reads an optional string field. Absent and null both
// yield the default.
func stringField(fields map[string]json.RawMessage, name, def string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Validationf("Invalid field: %s must be a string", name).WithField("field", name)
	}
	return s, nil
}

// numberField reads an optional numeric field. Absent and null both
// yield the default.
func numberField(fields map[string]json.RawMessage, name string, def float64) (float64, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return def, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.Validationf("Invalid field: %s must be a number", name).WithField("field", name)
	}
	return n, nil
}

// intField reads an optional numeric field that must be integral.
func intField(fields map[string]json.RawMessage, name string, def int) (int, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return def, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.Validationf("Invalid field: %s must be a number", name).WithField("field", name)
	}
	if n != math.Trunc(n) {
		return 0, errors.Validationf("Invalid field: %s must be an integer", name).WithField("field", name)
	}
	return int(n), nil
}
