package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const projectLockPrefix = "flow:lock:project:"

// ProjectLocker serializes project get-or-create per session. The in-process
// mutex is always taken; the Redis mutex is added when a RedisCache is set so
// replicas do not race each other.
type ProjectLocker struct {
	local *KeyedMutex
	redis *RedisCache
	ttl   time.Duration
}

// NewProjectLocker creates a locker. redis may be nil.
func NewProjectLocker(redis *RedisCache, ttl time.Duration) *ProjectLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProjectLocker{local: NewKeyedMutex(), redis: redis, ttl: ttl}
}

// LockName returns the lock key for a session. The session itself never
// leaves the process.
func LockName(session string) string {
	sum := sha256.Sum256([]byte(session))
	return projectLockPrefix + hex.EncodeToString(sum[:])
}

// WithProjectLock runs fn while holding the project lock for session.
func (l *ProjectLocker) WithProjectLock(ctx context.Context, session string, fn func(ctx context.Context) error) error {
	name := LockName(session)
	unlock, err := l.local.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	if l.redis == nil {
		return fn(ctx)
	}
	return WithLock(ctx, l.redis, name, l.ttl, func() error {
		return fn(ctx)
	})
}
