package uploadcache

import (
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/config"
	"jan-server/services/flow-api/internal/infrastructure/cache"
)

// New picks the store named by UPLOAD_CACHE_BACKEND. A Redis backend that
// is not reachable falls back to the file store.
func New(cfg *config.Config, redis *cache.RedisCache, log zerolog.Logger) Store {
	if cfg.IsRedisUploadCache() {
		if redis == nil {
			log.Warn().Msg("Redis upload cache requested but Redis is unavailable, using file store")
		} else if store, err := NewRedisStore(redis, log); err != nil {
			log.Warn().Err(err).Msg("Redis upload cache unavailable, using file store")
		} else {
			return store
		}
	}
	return NewFileStore(cfg.UploadCachePath(), log)
}
