package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpapi/handlers"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpkit"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/middleware"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/ports"
)

type Deps struct {
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	Jobs   handlers.JobStore
	Queue  handlers.QueuePusher
	Store  ports.ArchiveStore
	Synth  *handler.Handler
	Config config.Config
	Log    *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:8081",
		"http://localhost:5173",
	})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(handlers.Deps{
		Pool:   d.Pool,
		RDB:    d.RDB,
		Jobs:   d.Jobs,
		Queue:  d.Queue,
		Store:  d.Store,
		Synth:  d.Synth,
		Config: d.Config,
		Log:    log,
	})

	r.Get("/health", h.Health)

	// The synchronous route sits above the generation deadline so the
	// subprocess timeout, not the HTTP timeout, decides the outcome.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(d.Config.GenerateTimeout + 30*time.Second))
		r.Post("/runsync", h.RunSync)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/run", h.Run)
		r.Get("/jobs/{jobID}", h.GetJob)
		r.Get("/jobs/{jobID}/video", h.StreamJobVideo)
	})

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
