package main

import (
	"context"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/credentials"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/domain/retry"
	"jan-server/services/flow-api/internal/infrastructure/auth"
	"jan-server/services/flow-api/internal/infrastructure/cache"
	"jan-server/services/flow-api/internal/infrastructure/database"
	"jan-server/services/flow-api/internal/infrastructure/flowclient"
	"jan-server/services/flow-api/internal/infrastructure/repository/job"
	"jan-server/services/flow-api/internal/infrastructure/storage"
	"jan-server/services/flow-api/internal/interfaces/httpserver"
	"jan-server/services/flow-api/internal/interfaces/httpserver/handlers"
)

// Upper bound for any single upstream download, videos included.
const maxDownloadBytes = 256 << 20

func provideSettingsStore(cfg *config.Config) (*config.SettingsStore, error) {
	return config.NewSettingsStore(cfg.SettingsPath())
}

// provideResolver prefers the settings file over the environment.
func provideResolver(cfg *config.Config, settings *config.SettingsStore) *credentials.Resolver {
	return credentials.NewResolver(
		credentials.NewSettingsSource(settings),
		credentials.NewEnvSource(cfg),
	)
}

// provideRedis connects when REDIS_URL is set. A failed connection is logged
// and the service runs without Redis.
func provideRedis(cfg *config.Config, log zerolog.Logger) (*cache.RedisCache, func()) {
	if !cfg.HasRedis() {
		return nil, func() {}
	}
	redis, err := cache.NewRedisCache(cfg.RedisURL, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing with in-process state")
		return nil, func() {}
	}
	return redis, func() {
		if err := redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}

func provideFlowClient(cfg *config.Config, redis *cache.RedisCache, log zerolog.Logger) *flowclient.Client {
	return flowclient.NewClient(flowclient.Config{
		Timeout:     cfg.UpstreamTimeout,
		RetryPolicy: retry.UpstreamPolicy(cfg.RetryBaseDelay, cfg.RetryMaxAttempts),
		PaygateTier: cfg.UserPaygateTier,
		MaxDownload: maxDownloadBytes,
	}, cache.NewProjectLocker(redis, cfg.ProjectLockTTL), log)
}

// provideJobRepository uses Postgres when a DSN is configured and a bounded
// in-memory log otherwise.
func provideJobRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (generation.JobRepository, func(), error) {
	if !cfg.HasDatabase() {
		repo, err := job.NewMemoryRepository(cfg.JobLogSize)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Int("size", cfg.JobLogSize).Msg("using in-memory job log")
		return repo, func() {}, nil
	}

	db, err := database.Connect(database.Config{
		DatabaseURL: cfg.DBPostgresqlWriteDSN,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnLifetime,
		LogLevel:    gormlogger.Warn,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return job.NewRepository(db), cleanup, nil
}

// provideAdminAuth reads the admin credentials from the settings file on
// every login, so edits apply without a restart.
func provideAdminAuth(cfg *config.Config, settings *config.SettingsStore, redis *cache.RedisCache, log zerolog.Logger) (*auth.AdminAuth, error) {
	var revoked auth.RevocationStore
	if redis != nil {
		revoked = auth.NewRedisRevocationStore(redis)
	}
	return auth.NewAdminAuth(cfg, func() (string, string) {
		global := settings.Global()
		return global.AdminUsername, global.AdminPassword
	}, revoked, log)
}

func provideHandlers(service *generation.Service, adminAuth *auth.AdminAuth, settings *config.SettingsStore, log zerolog.Logger) *handlers.Provider {
	return handlers.NewProvider(service, adminAuth, settings, log)
}

func provideReadinessChecks(redis *cache.RedisCache, mirror storage.Mirror) map[string]httpserver.ReadinessCheck {
	checks := map[string]httpserver.ReadinessCheck{
		"mirror": mirror.Health,
	}
	if redis != nil {
		checks["redis"] = redis.HealthCheck
	}
	return checks
}
