package uploadcache

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"jan-server/services/flow-api/internal/infrastructure/cache"
	"jan-server/services/flow-api/internal/infrastructure/metrics"
)

// RedisHashKey is the hash holding digest -> media id.
const RedisHashKey = "flow:upload-cache:" + cache.CacheVersion

const defaultFrontSize = 4096

// RedisStore keeps entries in one Redis hash, with a small in-process LRU in
// front of it. Entries never change once written, so the front needs no
// invalidation.
type RedisStore struct {
	redis *cache.RedisCache
	front *lru.Cache
	log   zerolog.Logger
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redis *cache.RedisCache, log zerolog.Logger) (*RedisStore, error) {
	front, err := lru.New(defaultFrontSize)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &RedisStore{
		redis: redis,
		front: front,
		log:   log.With().Str("component", "upload-cache").Str("backend", "redis").Logger(),
	}, nil
}

// Get returns the media id cached for url. Redis errors read as a miss.
func (s *RedisStore) Get(ctx context.Context, url string) (string, bool) {
	key := Digest(url)
	if v, ok := s.front.Get(key); ok {
		metrics.RecordCacheLookup(s.Backend(), true)
		return v.(string), true
	}

	id, err := s.redis.HGet(ctx, RedisHashKey, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn().Err(err).Msg("upload cache lookup failed")
		}
		metrics.RecordCacheLookup(s.Backend(), false)
		return "", false
	}
	if id == "" {
		metrics.RecordCacheLookup(s.Backend(), false)
		return "", false
	}
	s.front.Add(key, id)
	metrics.RecordCacheLookup(s.Backend(), true)
	return id, true
}

// Set records url -> mediaID.
func (s *RedisStore) Set(ctx context.Context, url, mediaID string) error {
	key := Digest(url)
	if err := s.redis.HSet(ctx, RedisHashKey, key, mediaID); err != nil {
		return fmt.Errorf("store upload cache entry: %w", err)
	}
	s.front.Add(key, mediaID)
	return nil
}

// Len returns the number of entries in the hash, or -1 when Redis fails.
func (s *RedisStore) Len(ctx context.Context) int {
	n, err := s.redis.HLen(ctx, RedisHashKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("upload cache size lookup failed")
		return -1
	}
	return int(n)
}

func (s *RedisStore) Backend() string {
	return "redis"
}
