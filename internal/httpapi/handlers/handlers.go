package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/models"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
)

// JobStore is the slice of the job repository the API needs.
type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
}

// QueuePusher hands job IDs to the worker.
type QueuePusher interface {
	Push(ctx context.Context, jobID string) error
}

type Deps struct {
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	Jobs   JobStore
	Queue  QueuePusher
	Store  ports.ArchiveStore
	Synth  *handler.Handler
	Config config.Config
	Log    *logger.Logger
}

type Handler struct {
	pool  *pgxpool.Pool
	rdb   *redis.Client
	jobs  JobStore
	queue QueuePusher
	store ports.ArchiveStore
	synth *handler.Handler
	cfg   config.Config
	log   *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	return &Handler{
		pool:  d.Pool,
		rdb:   d.RDB,
		jobs:  d.Jobs,
		queue: d.Queue,
		store: d.Store,
		synth: d.Synth,
		cfg:   d.Config,
		log:   log.WithComponent("httpapi"),
	}
}
