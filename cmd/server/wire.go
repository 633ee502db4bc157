//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/credentials"
	"jan-server/services/flow-api/internal/domain/generation"
	"jan-server/services/flow-api/internal/infrastructure/flowclient"
	"jan-server/services/flow-api/internal/infrastructure/logger"
	"jan-server/services/flow-api/internal/infrastructure/storage"
	"jan-server/services/flow-api/internal/infrastructure/uploadcache"
	"jan-server/services/flow-api/internal/interfaces/httpserver"
)

var generationSet = wire.NewSet(
	provideSettingsStore,
	provideResolver,
	wire.Bind(new(generation.CredentialResolver), new(*credentials.Resolver)),
	provideFlowClient,
	wire.Bind(new(generation.Provider), new(*flowclient.Client)),
	uploadcache.New,
	wire.Bind(new(generation.UploadCache), new(uploadcache.Store)),
	provideJobRepository,
	storage.New,
	generation.NewService,
)

// BuildApplication assembles the flow API with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideRedis,
		generationSet,
		provideAdminAuth,
		provideHandlers,
		provideReadinessChecks,
		httpserver.New,
		NewApplication,
	)
	return nil, nil, nil
}
