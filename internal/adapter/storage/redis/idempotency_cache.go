package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache implements ports.IdempotencyCache. It is only a fast path
// in front of the idempotency_logs table; a miss or an error here is never
// authoritative.
type IdempotencyCache struct {
	client goredis.Cmdable
}

func NewIdempotencyCache(client goredis.Cmdable) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

// Get returns the stored entry for key, or nil, nil on a miss.
func (c *IdempotencyCache) Get(ctx context.Context, scopedKey string) ([]byte, error) {
	val, err := c.client.Get(ctx, key("idem", scopedKey)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis idempotency get: %w", err)
	}
	return val, nil
}

// Set stores value until ttl elapses. The first committed result for a key
// wins; later writes for the same key are ignored.
func (c *IdempotencyCache) Set(ctx context.Context, scopedKey string, value []byte, ttl time.Duration) error {
	if err := c.client.SetNX(ctx, key("idem", scopedKey), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis idempotency set: %w", err)
	}
	return nil
}
