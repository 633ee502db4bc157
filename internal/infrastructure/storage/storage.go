// Package storage mirrors generated media into durable object storage so the
// service can hand out URLs that outlive the upstream's signed links.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
)

// CacheControl is attached to every mirrored object. Generated media never
// changes once written.
const CacheControl = "public, max-age=31536000, immutable"

// Mirror stores bytes under a key and returns a public URL. ok is false when
// the backend is not configured; that is not an error.
type Mirror interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, ok bool, err error)
	Backend() string
	Health(ctx context.Context) error
}

// New returns the mirror selected by MIRROR_BACKEND.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Mirror, error) {
	if cfg.IsLocalMirror() {
		return NewLocalStorage(cfg, log)
	}
	return NewS3Storage(ctx, cfg, log)
}

// ObjectKey builds the key for a generated asset, e.g.
// "flow/videos/<media id>.mp4".
func ObjectKey(kind, mediaID, contentType string) string {
	ext := ""
	if mt := mimetype.Lookup(strings.SplitN(contentType, ";", 2)[0]); mt != nil {
		ext = mt.Extension()
	}
	id := strings.Trim(path.Clean("/"+mediaID), "/")
	if id == "" || id == "." {
		id = "unnamed"
	}
	return path.Join("flow", kind, strings.ReplaceAll(id, "/", "_")+ext)
}

// PublicURL joins a base URL and an object key with exactly one slash.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
