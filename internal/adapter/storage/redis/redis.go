package redis

import (
	"context"
	"fmt"

	"civic-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyspace is the prefix every key written by this package lives under.
const keyspace = "sup:"

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("redis connection established")

	return client, nil
}

func key(kind string, parts ...string) string {
	k := keyspace + kind
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// HealthCheck reports whether Redis answers PING.
type HealthCheck struct {
	client goredis.Cmdable
}

func NewHealthCheck(client goredis.Cmdable) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string { return "redis" }
