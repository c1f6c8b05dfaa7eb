package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobQueued  JobStatus = "QUEUED"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

// Job is one queued synthesis request. Input holds the request mapping
// exactly as submitted; the worker replays it through the same handler
// the synchronous route uses, so both paths validate and fail alike.
type Job struct {
	ID             string          `json:"id"`
	Status         JobStatus       `json:"status"`
	Input          json.RawMessage `json:"input,omitempty"`
	ErrorText      string          `json:"error,omitempty"`
	Stdout         string          `json:"stdout,omitempty"`
	Stderr         string          `json:"stderr,omitempty"`
	VideoObjectKey string          `json:"video_object_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j *Job) Terminal() bool {
	return j.Status == JobDone || j.Status == JobFailed
}
