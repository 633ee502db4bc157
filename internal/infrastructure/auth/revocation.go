package auth

import (
	"context"
	"sync"
	"time"

	"jan-server/services/flow-api/internal/infrastructure/cache"
)

// RevocationStore remembers revoked token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore keeps revoked ids in process.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = until
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[jti]
	return ok && !s.now().After(exp), nil
}

// RedisRevocationStore shares revocations across replicas. Keys expire with
// the token.
type RedisRevocationStore struct {
	redis *cache.RedisCache
}

func NewRedisRevocationStore(redis *cache.RedisCache) *RedisRevocationStore {
	return &RedisRevocationStore{redis: redis}
}

func revocationKey(jti string) string {
	return "flow:admin:revoked:" + cache.CacheVersion + ":" + jti
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revocationKey(jti), "1", ttl)
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.redis.Exists(ctx, revocationKey(jti))
}
