package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgredis "github.com/angelmondragon/sunrise-backend/pkg/redis"
)

// SnapshotRepository stores encoded cart snapshots per session.
// Load returns (nil, nil) when the session has no cart.
type SnapshotRepository interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, raw []byte) error
	Delete(ctx context.Context, sessionID string) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisSnapshotRepository keeps snapshots under sunrise:cart:<session> with a sliding TTL.
type RedisSnapshotRepository struct {
	client redisStore
	ttl    time.Duration
}

func NewRedisSnapshotRepository(client redisStore, ttl time.Duration) (*RedisSnapshotRepository, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisSnapshotRepository{client: client, ttl: ttl}, nil
}

func (r *RedisSnapshotRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.client.CartKey(sessionID))
	if err != nil {
		if pkgredis.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(raw), nil
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, sessionID string, raw []byte) error {
	return r.client.Set(ctx, r.client.CartKey(sessionID), string(raw), r.ttl)
}

func (r *RedisSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.client.CartKey(sessionID))
}

// MemorySnapshotRepository is a process-local repository for development and tests.
type MemorySnapshotRepository struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{data: map[string][]byte{}}
}

func (r *MemorySnapshotRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.data[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, sessionID string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[sessionID] = append([]byte(nil), raw...)
	return nil
}

func (r *MemorySnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}
