package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
)

// LocalStorage mirrors media onto the local filesystem, for single node
// deployments that serve the directory behind a static file server.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
	disabled bool
}

// NewLocalStorage creates a filesystem mirror rooted at MIRROR_LOCAL_PATH.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalMirrorPath)
	if basePath == "" {
		logger.Warn().Msg("MIRROR_LOCAL_PATH is not set; local mirror will be disabled")
		return &LocalStorage{log: logger, disabled: true}, nil
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local mirror directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSpace(cfg.LocalMirrorBaseURL),
		log:      logger,
	}
	logger.Info().
		Str("path", basePath).
		Str("base_url", storage.baseURL).
		Msg("local mirror initialized")
	return storage, nil
}

func (l *LocalStorage) Backend() string { return "local" }

// Put writes data under basePath/key. Without a base URL the file:// path is
// returned.
func (l *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, bool, error) {
	if l.disabled {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	start := time.Now()

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(strings.TrimLeft(key, "/")))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		metrics.RecordMirror(l.Backend(), "failed", time.Since(start).Seconds())
		return "", false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		metrics.RecordMirror(l.Backend(), "failed", time.Since(start).Seconds())
		return "", false, fmt.Errorf("failed to write file: %w", err)
	}
	metrics.RecordMirror(l.Backend(), "success", time.Since(start).Seconds())

	l.log.Debug().
		Str("key", key).
		Str("content_type", contentType).
		Int("bytes", len(data)).
		Msg("file written to local mirror")

	if l.baseURL != "" {
		return PublicURL(l.baseURL, filepath.ToSlash(key)), true, nil
	}
	return "file://" + fullPath, true, nil
}

// Health checks that the mirror directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if l.disabled {
		return nil
	}
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("mirror directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}
