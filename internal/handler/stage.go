package handler

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
)

// Staged holds the on-disk input files of one job. All paths live
// inside Dir, which is owned by exactly one invocation.
type Staged struct {
	Dir       string
	ImagePath string
	AudioPath string
	PosePath  string // empty when no pose video was supplied
}

// stageInputs decodes the request payloads into the scratch directory.
func stageInputs(dir string, req *Request) (*Staged, error) {
	st := &Staged{Dir: dir}

	imageBytes, err := decodeBase64Payload(req.ImageBase64)
	if err != nil {
		return nil, errors.Newf(errors.CodeDecode, "Failed to decode input: %v", err)
	}
	st.ImagePath = filepath.Join(dir, "input"+imageExt(req.ImageBase64))
	if err := os.WriteFile(st.ImagePath, imageBytes, 0o644); err != nil {
		return nil, errors.Newf(errors.CodeDecode, "Failed to decode input: %v", err)
	}

	audioBytes, err := decodeBase64Payload(req.AudioBase64)
	if err != nil {
		return nil, errors.Newf(errors.CodeDecode, "Failed to decode input: %v", err)
	}
	st.AudioPath = filepath.Join(dir, "input"+audioExt(req.AudioBase64))
	if err := os.WriteFile(st.AudioPath, audioBytes, 0o644); err != nil {
		return nil, errors.Newf(errors.CodeDecode, "Failed to decode input: %v", err)
	}

	if req.PoseVideoBase64 != "" {
		poseBytes, err := decodeBase64Payload(req.PoseVideoBase64)
		if err != nil {
			return nil, errors.Newf(errors.CodeDecode, "Failed to decode pose video: %v", err)
		}
		st.PosePath = filepath.Join(dir, "pose.mp4")
		if err := os.WriteFile(st.PosePath, poseBytes, 0o644); err != nil {
			return nil, errors.Newf(errors.CodeDecode, "Failed to decode pose video: %v", err)
		}
	}

	return st, nil
}

// decodeBase64Payload decodes a standard base64 payload, stripping a
// data URI header (`data:<mime>;base64,`) when present.
func decodeBase64Payload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// imageExt picks the staged image extension from the data URI header.
// Headerless payloads default to .jpg.
func imageExt(b64 string) string {
	switch {
	case strings.HasPrefix(b64, "data:image/png"):
		return ".png"
	case strings.HasPrefix(b64, "data:image/webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

// audioExt picks the staged audio extension from the data URI header.
// Headerless payloads default to .wav.
func audioExt(b64 string) string {
	if strings.HasPrefix(b64, "data:audio/mp3") || strings.HasPrefix(b64, "data:audio/mpeg") {
		return ".mp3"
	}
	return ".wav"
}
