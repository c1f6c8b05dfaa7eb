package handler

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
)

// collectOutput finds the produced video in the scratch directory and
// encodes it for transport. Runs only after a clean exit. Glob returns
// lexical order, so the pick is deterministic; the staged pose video
// also matches *.mp4 and is filtered out so it can never be returned as
// the artifact.
func collectOutput(st *Staged, out *Outcome) (string, error) {
	matches, err := filepath.Glob(filepath.Join(st.Dir, "*.mp4"))
	if err != nil {
		return "", errors.Wrap(err, "handler.collect", "scratch directory scan failed")
	}

	produced := matches[:0]
	for _, m := range matches {
		if m == st.PosePath {
			continue
		}
		produced = append(produced, m)
	}

	if len(produced) == 0 {
		return "", errors.New(errors.CodeNoOutput, "No output video generated").
			WithField("stdout", out.Stdout).
			WithField("stderr", out.Stderr)
	}

	data, err := os.ReadFile(produced[0])
	if err != nil {
		return "", errors.Newf(errors.CodeEncode, "Failed to encode output: %v", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
