package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore keeps fixed-window request counters.
type RateLimitStore struct {
	client goredis.Cmdable
	now    func() time.Time
}

func NewRateLimitStore(client goredis.Cmdable) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix seconds
}

// Allow counts one request against subject in the current window. The
// counter and its expiry are written in one MULTI so a window key can never
// outlive its window.
func (s *RateLimitStore) Allow(ctx context.Context, subject string, limit int64, window time.Duration) (*RateLimitResult, error) {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	windowID := s.now().Unix() / secs
	k := key("rl", subject, strconv.FormatInt(windowID, 10))

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, time.Duration(secs+1)*time.Second)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}

	count := incr.Val()
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   (windowID + 1) * secs,
	}, nil
}
