package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/shutdown"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/repositories"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/storage"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/worker"
)

func main() {
	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "s2v-worker",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting S2V worker",
		"version", "0.1.0",
	)

	cfg := config.Load()
	dbURL := mustEnv(log, "DATABASE_URL")
	redisAddr := mustEnv(log, "REDIS_ADDR")
	queueName := getEnv("JOB_QUEUE_NAME", "s2v:jobs")

	// The loop context is canceled first on shutdown; an in-flight job
	// gets the rest of the shutdown window to finish marking its row.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)
	shutdownMgr.Register("worker-loop", func(context.Context) error {
		cancel()
		return nil
	})

	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	repo := repositories.NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.LogFatal("failed to ensure jobs schema", err)
	}

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	log.Info("initializing archive store")
	store, err := storage.NewStore()
	if err != nil {
		log.LogFatal("failed to initialize archive store", err)
	}
	log.Info("archive store initialized", "provider", store.Provider())

	go func() {
		err := worker.Run(ctx, worker.Deps{
			RDB:       rdb,
			QueueName: queueName,
			Jobs:      repo,
			Store:     store,
			Synth:     handler.New(cfg, log),
			Log:       log,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker loop exited", "error", err.Error())
		}
	}()

	shutdownMgr.Wait()
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

// mustEnv gets a required environment variable or exits.
func mustEnv(log *logger.Logger, key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return v
}
