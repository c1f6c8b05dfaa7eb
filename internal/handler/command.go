package handler

import (
	"strconv"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
)

// buildCommand assembles the generate.py argument vector for a staged
// job. The interpreter itself is not part of the vector; the executor
// prepends it. Pure; cannot fail on a validated request.
func buildCommand(cfg config.Config, req *Request, st *Staged) []string {
	args := []string{
		"generate.py",
		"--task", "s2v-14B",
		"--size", req.Size,
		"--ckpt_dir", cfg.ModelDir,
		"--image", st.ImagePath,
		"--audio", st.AudioPath,
		"--output_dir", st.Dir,
		"--sample_steps", strconv.Itoa(req.Steps),
		"--cfg_scale", formatFloat(req.CFG),
	}

	if req.Prompt != "" {
		args = append(args, "--prompt", req.Prompt)
	}
	if req.NegativePrompt != "" {
		args = append(args, "--negative_prompt", req.NegativePrompt)
	}
	// Negative seeds mean "let the generator pick"; the flag is omitted
	// entirely rather than forwarded.
	if req.Seed >= 0 {
		args = append(args, "--seed", strconv.Itoa(req.Seed))
	}
	if cfg.OffloadModel {
		args = append(args, "--offload_model", "True")
	}
	if st.PosePath != "" {
		args = append(args, "--pose_video", st.PosePath)
	}

	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
