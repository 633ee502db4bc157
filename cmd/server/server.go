package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/infrastructure/logger"
	"jan-server/services/flow-api/internal/infrastructure/observability"
	"jan-server/services/flow-api/internal/infrastructure/storage"
	"jan-server/services/flow-api/internal/infrastructure/uploadcache"
	"jan-server/services/flow-api/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	settings, err := provideSettingsStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load settings")
	}
	resolver := provideResolver(cfg, settings)

	redis, closeRedis := provideRedis(cfg, log)
	defer closeRedis()

	jobs, closeJobs, err := provideJobRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize job log")
	}
	defer closeJobs()

	mirror, err := storage.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize mirror storage")
	}

	flowClient := provideFlowClient(cfg, redis, log)
	uploadCache := uploadcache.New(cfg, redis, log)
	service := generation.NewService(cfg, resolver, flowClient, uploadCache, jobs, mirror, log)

	adminAuth, err := provideAdminAuth(cfg, settings, redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize admin auth")
	}

	handlerProvider := provideHandlers(service, adminAuth, settings, log)
	httpServer := httpserver.New(cfg, log, handlerProvider, adminAuth, provideReadinessChecks(redis, mirror))
	app := NewApplication(httpServer, log)

	log.Info().
		Strs("credential_sources", resolver.SourceNames()).
		Str("upload_cache", uploadCache.Backend()).
		Str("mirror", mirror.Backend()).
		Bool("postgres_job_log", cfg.HasDatabase()).
		Msg("flow-api configured")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
