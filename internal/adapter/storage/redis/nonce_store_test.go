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

func TestNonceStore_CheckAndSet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()
	store := NewNonceStore(client)
	ctx := context.Background()

	t.Run("first use is accepted", func(t *testing.T) {
		ok, err := store.CheckAndSet(ctx, "task-engine", "n-1", 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("replay is refused", func(t *testing.T) {
		ok, err := store.CheckAndSet(ctx, "task-engine", "n-1", 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nonces are scoped per client", func(t *testing.T) {
		ok, err := store.CheckAndSet(ctx, "kyc-provider", "n-1", 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired nonce is accepted again", func(t *testing.T) {
		ok, err := store.CheckAndSet(ctx, "task-engine", "n-2", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		s.FastForward(2 * time.Second)

		ok, err = store.CheckAndSet(ctx, "task-engine", "n-2", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
