package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*IdempotencyCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyCache(client), s
}

func TestIdempotencyCache_MissThenHit(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	scoped := "6f1c2a9e-0d4b-4c1e-9a55-3b7f0e2d8c11:VOTE:client-7"
	value := []byte(`{"key":"x","request_hash":"abc"}`)

	got, err := cache.Get(ctx, scoped)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, scoped, value, time.Hour))

	got, err = cache.Get(ctx, scoped)
	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.True(t, s.Exists("sup:idem:"+scoped))
}

func TestIdempotencyCache_Expires(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Second))
	s.FastForward(2 * time.Second)

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyCache_FirstWriteWins(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("first"), time.Hour))
	require.NoError(t, cache.Set(ctx, "k", []byte("second"), time.Hour))

	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestIdempotencyCache_ServerDown(t *testing.T) {
	cache, s := newTestCache(t)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "redis idempotency get")
}
