package revocation

import (
	"context"
	"fmt"
	"time"

	"salesforge-api/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces revocation keys in a shared Redis
const DefaultKeyPrefix = "salesforge:revoked:"

// RedisSet stores revoked keys with a TTL equal to the remaining token lifetime,
// so several API instances share one denylist and Redis does the expiry.
type RedisSet struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisSet creates a Redis-backed revocation set
func NewRedisSet(client *redis.Client, prefix string) *RedisSet {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSet{client: client, prefix: prefix, now: time.Now}
}

// Add stores key until expiresAt
func (s *RedisSet) Add(ctx context.Context, key string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+key, expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to revoke token: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Contains checks whether key is still present
func (s *RedisSet) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to check revocation: %w", domain.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Sweep is a no-op: Redis expires keys itself
func (s *RedisSet) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Ping checks the Redis connection
func (s *RedisSet) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
