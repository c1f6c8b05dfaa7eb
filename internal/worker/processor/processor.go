// Package processor drains queued jobs: it loads the stored request,
// replays it through the synthesis handler, and archives the artifact.
package processor

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/models"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
)

// JobStore is the slice of the job repository the processor needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*models.Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id, videoObjectKey string) error
	MarkFailed(ctx context.Context, id, errorText, stdout, stderr string) error
}

type Deps struct {
	Jobs  JobStore
	Store ports.ArchiveStore
	Synth *handler.Handler
	Log   *logger.Logger
}

type Processor struct {
	jobs  JobStore
	store ports.ArchiveStore
	synth *handler.Handler
	log   *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Processor{
		jobs:  d.Jobs,
		store: d.Store,
		synth: d.Synth,
		log:   log.WithComponent("processor"),
	}
}

// ProcessJob runs one queued job start to finish. The job row always
// ends in a terminal state; the returned error is what the worker loop
// logs.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.FromContext(ctx).WithJobID(jobID)

	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	log.Debug("marking job as running")
	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	res := p.synth.Handle(ctx, job.Input)
	if res.Failed() {
		if err := p.jobs.MarkFailed(ctx, jobID, res.Error, res.Stdout, res.Stderr); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return fmt.Errorf("%s: %s", res.Code(), res.Error)
	}

	key, err := p.archive(ctx, jobID, res.Video)
	if err != nil {
		msg := fmt.Sprintf("Failed to archive output: %v", err)
		if mfErr := p.jobs.MarkFailed(ctx, jobID, msg, "", ""); mfErr != nil {
			return fmt.Errorf("mark failed after archive error: %w", mfErr)
		}
		return fmt.Errorf("archive artifact: %w", err)
	}
	log.Info("artifact archived", "object_key", key)

	if err := p.jobs.MarkDone(ctx, jobID, key); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

// archive streams the base64 artifact into the store without holding a
// decoded copy in memory.
func (p *Processor) archive(ctx context.Context, jobID, videoB64 string) (string, error) {
	key := path.Join("outputs", jobID, "video.mp4")

	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(videoB64))
	out, err := p.store.Put(ctx, ports.PutInput{
		Key:         key,
		ContentType: "video/mp4",
		Reader:      dec,
	})
	if err != nil {
		return "", err
	}
	return out.Key, nil
}
