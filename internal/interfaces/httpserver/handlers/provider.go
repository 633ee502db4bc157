package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/domain/flow"
	"jan-server/services/flow-api/internal/domain/generation"
)

// GenerationService is the orchestrator surface the public handlers call.
type GenerationService interface {
	GenerateVideo(ctx context.Context, in generation.VideoInput) (*generation.GenerationResult, error)
	GetVideoStatus(ctx context.Context, operationName, sceneID string) (*generation.GenerationResult, error)
	GenerateImage(ctx context.Context, in generation.ImageInput) (*generation.ImageResult, error)
	GetCredits(ctx context.Context) (flow.Credits, error)
	ListJobs(ctx context.Context, limit int) ([]generation.Job, error)
}

// AdminAuthenticator issues and revokes admin session tokens.
type AdminAuthenticator interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Logout(ctx context.Context, token string) error
}

// SettingsStore reads and patches the runtime settings file.
type SettingsStore interface {
	Current() config.Settings
	Update(global, flow map[string]any) error
}

// Provider wires HTTP handlers.
type Provider struct {
	Video *VideoHandler
	Image *ImageHandler
	Admin *AdminHandler
}

func NewProvider(service GenerationService, admin AdminAuthenticator, settings SettingsStore, log zerolog.Logger) *Provider {
	return &Provider{
		Video: NewVideoHandler(service, log),
		Image: NewImageHandler(service, log),
		Admin: NewAdminHandler(admin, settings, service, log),
	}
}
