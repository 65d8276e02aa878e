package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry stores session records in Redis with native per-key TTL:
// SET refresh_token:<id> <digest> EX <ttl>.
type RedisRegistry struct {
	rdb redis.Cmdable
}

// NewRedisRegistry wraps an existing client. The caller owns its lifecycle.
func NewRedisRegistry(rdb redis.Cmdable) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) Put(ctx context.Context, userID, digest string, ttl time.Duration) error {
	if userID == "" || digest == "" || ttl <= 0 {
		return fmt.Errorf("session: put: invalid record")
	}
	if err := r.rdb.Set(ctx, RegistryKey(userID), digest, ttl).Err(); err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, userID string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, RegistryKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return v, true, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, RegistryKey(userID)).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Ping reports backend reachability for readiness checks.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("session: %s: %w: %w", op, ErrRegistryUnavailable, err)
}
