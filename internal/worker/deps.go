package worker

import (
	"github.com/redis/go-redis/v9"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/worker/processor"
)

type Deps struct {
	RDB       *redis.Client
	QueueName string
	Jobs      processor.JobStore
	Store     ports.ArchiveStore
	Synth     *handler.Handler
	Log       *logger.Logger
}
