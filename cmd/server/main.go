package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/gladius/internal/api"
	"github.com/Rrens/gladius/internal/api/handler"
	"github.com/Rrens/gladius/internal/config"
	"github.com/Rrens/gladius/internal/intel"
	"github.com/Rrens/gladius/internal/logging"
	"github.com/Rrens/gladius/internal/repository/memory"
	"github.com/Rrens/gladius/internal/repository/redis"
	"github.com/Rrens/gladius/internal/service"
)

const sweepInterval = time.Minute

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	envLoaded := false
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		fmt.Println("Warning: .env file not found in any standard location")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logCloser, err := logging.Setup(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("backend", cfg.Assistant.Backend).
		Msg("Starting Gladius API server")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps := api.Dependencies{}
	ready := map[string]handler.ReadinessCheck{}

	// Initialize Redis
	var intelCache intel.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		cache := redis.NewIntelCache(redisClient, cfg.Intel.CacheTTL)
		intelCache = cache
		deps.Cache = cache
		ready["redis"] = redisClient.Ping

		if cfg.Security.RateLimit.Enabled {
			deps.Limiter = redis.NewRateLimiter(
				redisClient,
				cfg.Security.RateLimit.RequestsPerMinute,
				cfg.Security.RateLimit.Burst,
			)
		}
	} else {
		log.Info().Msg("Redis disabled: intel cache and rate limiting are off")
	}

	// Initialize LLM Router with providers
	llmRouter := service.NewLLMRouter(cfg.LLM)
	deps.LLMRouter = llmRouter

	sessions, err := service.NewSessions(cfg.Assistant, llmRouter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant backend")
	}
	defer sessions.Close()

	if err := sessions.Ready(); err != nil {
		log.Warn().Err(err).Msg("Assistant not ready: audits will be rejected until it is configured")
	}
	ready["assistant"] = func(context.Context) error { return sessions.Ready() }

	// Initialize services
	auditService := service.NewAuditService(
		memory.NewAuditRepository(),
		sessions.New,
		service.NewIntelGatherer(cfg.Intel, llmRouter, intelCache),
		cfg.Security.MaxSessions,
		cfg.Security.SessionTTL,
	)
	deps.Audits = auditService
	deps.Ready = ready

	go auditService.RunSweeper(ctx, sweepInterval)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
