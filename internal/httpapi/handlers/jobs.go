package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpkit"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/models"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/repositories"
)

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			httpkit.WriteErr(w, 404, "NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
			return
		}
		h.log.FromContext(ctx).Error("job lookup failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	out := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	}
	if job.StartedAt != nil {
		out["started_at"] = job.StartedAt
	}
	if job.FinishedAt != nil {
		out["finished_at"] = job.FinishedAt
	}

	switch job.Status {
	case models.JobFailed:
		out["error"] = job.ErrorText
		if job.Stdout != "" {
			out["stdout"] = job.Stdout
		}
		if job.Stderr != "" {
			out["stderr"] = job.Stderr
		}
	case models.JobDone:
		out["video_url"] = "/jobs/" + job.ID + "/video"
	}

	httpkit.WriteJSON(w, 200, map[string]any{"job": out})
}

// StreamJobVideo streams the archived artifact of a finished job.
func (h *Handler) StreamJobVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			httpkit.WriteErr(w, 404, "NOT_FOUND", "job not found", map[string]any{"job_id": jobID})
			return
		}
		h.log.FromContext(ctx).Error("job lookup failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}

	if job.Status != models.JobDone || job.VideoObjectKey == "" {
		httpkit.WriteErr(w, 409, "CONFLICT", "job has no video yet", map[string]any{
			"job_id": jobID,
			"status": job.Status,
		})
		return
	}

	rc, ct, size, err := h.store.Open(ctx, job.VideoObjectKey)
	if err != nil {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "video file missing", map[string]any{"object_key": job.VideoObjectKey})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = "video/mp4"
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}
