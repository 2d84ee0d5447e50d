package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitStore_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	clock := time.Unix(1_700_000_000, 0)
	store := NewRateLimitStore(client)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			res, err := store.Allow(ctx, "acct-1:vote", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d", i)
			assert.Equal(t, 3-i, res.Remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		res, err := store.Allow(ctx, "acct-1:vote", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Zero(t, res.Remaining)
	})

	t.Run("subjects are independent", func(t *testing.T) {
		res, err := store.Allow(ctx, "acct-2:vote", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(4), res.Remaining)
	})

	t.Run("window key carries a TTL", func(t *testing.T) {
		windowID := clock.Unix() / 60
		ttl := mr.TTL(key("rl", "acct-1:vote", strconv.FormatInt(windowID, 10)))
		assert.Equal(t, 61*time.Second, ttl)
	})

	t.Run("next window starts fresh", func(t *testing.T) {
		clock = clock.Add(time.Minute)
		res, err := store.Allow(ctx, "acct-1:vote", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, (clock.Unix()/60+1)*60, res.ResetAt)
	})
}
