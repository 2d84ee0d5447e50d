package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "civic-ledger/internal/adapter/storage/redis"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Limiter is the fixed-window counter behind RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// DefaultRateLimitRules returns the limits per endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"auth_login":    {Limit: 10, Window: time.Minute},
		"auth_register": {Limit: 5, Window: time.Hour},
		"read":          {Limit: 120, Window: time.Minute},
		"vote":          {Limit: 60, Window: time.Minute},
		"spend":         {Limit: 30, Window: time.Minute},
		"kyc":           {Limit: 5, Window: time.Hour},
		"intents":       {Limit: 600, Window: time.Minute},
		"admin":         {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// A failing store lets the request through.
func RateLimiter(store Limiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys the counter by service client, then participant, then IP.
func extractIdentifier(c *gin.Context) string {
	if ak := c.GetHeader(HeaderAccessKey); ak != "" {
		return "client:" + ak
	}
	if id, ok := ParticipantID(c); ok {
		return "participant:" + id.String()
	}
	return "ip:" + c.ClientIP()
}
