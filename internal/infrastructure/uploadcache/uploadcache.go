// Package uploadcache remembers which upstream media id a source URL was
// uploaded as, so the same image is never uploaded twice.
package uploadcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store maps a source URL to an upstream media id. Keys are the sha256 hex
// digest of the URL; raw URLs are never stored.
type Store interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, mediaID string) error
	Len(ctx context.Context) int
	Backend() string
}

// Digest returns the cache key for a URL.
func Digest(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
