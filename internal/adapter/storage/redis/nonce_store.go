package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore with SET NX, scoped per service client.
type NonceStore struct {
	client goredis.Cmdable
}

func NewNonceStore(client goredis.Cmdable) *NonceStore {
	return &NonceStore{client: client}
}

// CheckAndSet reports true the first time nonce is seen for clientKey within ttl.
func (s *NonceStore) CheckAndSet(ctx context.Context, clientKey string, nonce string, ttl time.Duration) (bool, error) {
	res, err := s.client.SetArgs(ctx, key("nonce", clientKey, nonce), 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return res == "OK", nil
}
