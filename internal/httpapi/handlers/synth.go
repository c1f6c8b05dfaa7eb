package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpapi/util"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpkit"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/models"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/errors"
)

// JobEnvelope is the platform envelope: the request mapping rides under
// "input". Sibling keys are upstream bookkeeping and get ignored.
type JobEnvelope struct {
	Input json.RawMessage `json:"input"`
}

// RunSync runs one generation inline and replies with the result
// mapping: {"video": ...} or {"error": ..., "stdout"?, "stderr"?}. The
// status code comes from the error code; the body shape never changes.
func (h *Handler) RunSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var env JobEnvelope
	if err := httpkit.DecodeJSON(r, &env); err != nil {
		// A malformed body gets the same error result as a missing
		// input mapping.
		env.Input = nil
	}

	res := h.synth.Handle(ctx, env.Input)
	httpkit.WriteJSON(w, res.HTTPStatus(), res)
}

// Run accepts a job for the worker: validate, persist as QUEUED, push
// the ID onto the queue.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var env JobEnvelope
	if err := httpkit.DecodeJSON(r, &env); err != nil {
		env.Input = nil
	}

	if err := h.synth.Validate(env.Input); err != nil {
		httpkit.WriteErr(w, errors.GetHTTPStatus(err), string(errors.GetCode(err)), errors.GetMessage(err), nil)
		return
	}

	job := &models.Job{
		ID:     util.NewID("job"),
		Status: models.JobQueued,
		Input:  env.Input,
	}
	if err := h.jobs.Create(ctx, job); err != nil {
		log.Error("job insert failed", "error", err.Error())
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "failed to persist job", nil)
		return
	}

	if err := h.queue.Push(ctx, job.ID); err != nil {
		log.Error("queue push failed", "error", err.Error(), "job_id", job.ID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "failed to enqueue job", nil)
		return
	}

	log.Info("job queued", "job_id", job.ID)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"id":     job.ID,
		"status": job.Status,
	})
}
