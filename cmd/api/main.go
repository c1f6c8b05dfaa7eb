package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/config"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/handler"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/httpapi"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/logger"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/pkg/shutdown"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/repositories"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/storage"
	"github.com/mugonmuydesk/Wan2.2-S2V-14B/internal/worker/queue"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "s2v-api",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting S2V API",
		"version", "0.1.0",
	)

	// Load configuration
	cfg := config.Load()
	httpPort := getEnv("HTTP_PORT", "8080")
	dbURL := mustEnv(log, "DATABASE_URL")
	redisAddr := mustEnv(log, "REDIS_ADDR")
	queueName := getEnv("JOB_QUEUE_NAME", "s2v:jobs")

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Connect to PostgreSQL
	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	// Verify PostgreSQL connection
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	repo := repositories.NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.LogFatal("failed to ensure jobs schema", err)
	}

	// Connect to Redis
	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})

	// Verify Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	// Initialize storage provider
	log.Info("initializing archive store")
	store, err := storage.NewStore()
	if err != nil {
		log.LogFatal("failed to initialize archive store", err)
	}
	log.Info("archive store initialized", "provider", store.Provider())

	// Create HTTP router
	router := httpapi.NewRouter(httpapi.Deps{
		Pool:   pool,
		RDB:    rdb,
		Jobs:   repo,
		Queue:  queue.NewRedisQueue(rdb, queueName),
		Store:  store,
		Synth:  handler.New(cfg, log),
		Config: cfg,
		Log:    log,
	})

	// Create HTTP server. WriteTimeout must outlive a full generation;
	// the route timeout decides first.
	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Register server shutdown
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	// Wait for shutdown signal
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
