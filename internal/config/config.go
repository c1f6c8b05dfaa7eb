// Package config loads the synthesis runtime configuration from the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the generation pipeline needs to run a job:
// where the model checkpoints live, how the external process is
// launched, and the knobs applied when a request omits them.
type Config struct {
	// ModelDir is the checkpoint directory passed to the generator.
	ModelDir string
	// DefaultSize is the output resolution used when a request does not
	// set one, in the generator's "W*H" notation.
	DefaultSize string
	// DefaultSteps is the sampling step count used when a request does
	// not set one.
	DefaultSteps int
	// OffloadModel toggles model offloading in the generator.
	OffloadModel bool
	// GenerateTimeout bounds a single generation run.
	GenerateTimeout time.Duration
	// InferenceDir is the working directory the generator runs in.
	InferenceDir string
	// PythonBin is the interpreter used to launch the generator.
	PythonBin string
	// ScratchRoot is the parent directory for per-job scratch
	// directories. Empty means the system temp directory.
	ScratchRoot string
}

// Load reads the configuration from the environment, applying defaults
// for anything unset.
func Load() Config {
	return Config{
		ModelDir:        env("MODEL_DIR", "/models/Wan2.2-S2V-14B"),
		DefaultSize:     env("DEFAULT_SIZE", "832*480"),
		DefaultSteps:    intEnv("DEFAULT_STEPS", 30),
		OffloadModel:    boolEnv("OFFLOAD_MODEL", true),
		GenerateTimeout: durationEnv("GENERATE_TIMEOUT", 10*time.Minute),
		InferenceDir:    env("INFERENCE_DIR", "/app"),
		PythonBin:       env("PYTHON_BIN", "python3"),
		ScratchRoot:     env("SCRATCH_DIR", ""),
	}
}

func env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func intEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolEnv(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationEnv(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
