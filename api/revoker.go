package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevoker stores revoked token ids in Redis so every instance rejects a
// token the moment one of them retires it.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker creates a revoker using the provided Redis client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) key(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke records the token id. The TTL should be the token's remaining
// lifetime; after that the entry is useless and may expire.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(tokenID), 1, ttl).Err()
}

// Revoked reports whether the token id has been retired.
func (r *RedisRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
