package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civic-ledger/internal/adapter/http/middleware"
	redisStore "civic-ledger/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(t *testing.T, limit int64) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	rule := middleware.RateLimitRule{Limit: limit, Window: time.Minute}
	r.GET("/test", middleware.RateLimiter(redisStore.NewRateLimitStore(client), "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func get(r *gin.Engine, accessKey string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/test", nil)
	if accessKey != "" {
		req.Header.Set(middleware.HeaderAccessKey, accessKey)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(t, 3)

	for i := 0; i < 3; i++ {
		w := get(router, "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := setupRateLimitRouter(t, 2)

	get(router, "")
	get(router, "")
	w := get(router, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_CountsPerServiceClient(t *testing.T) {
	router := setupRateLimitRouter(t, 1)

	assert.Equal(t, http.StatusOK, get(router, "task-engine").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "task-engine").Code)
	assert.Equal(t, http.StatusOK, get(router, "kyc-provider").Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int64, time.Duration) (*redisStore.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rule := middleware.RateLimitRule{Limit: 1, Window: time.Minute}
	r.GET("/test", middleware.RateLimiter(failingLimiter{}, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		w := get(r, "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(10), rules["auth_login"].Limit)
	assert.Equal(t, int64(5), rules["auth_register"].Limit)
	assert.Equal(t, time.Hour, rules["auth_register"].Window)
	assert.Equal(t, int64(60), rules["vote"].Limit)
	assert.Equal(t, int64(30), rules["spend"].Limit)
	assert.Equal(t, int64(600), rules["intents"].Limit)
	for group, rule := range rules {
		assert.Positive(t, rule.Limit, group)
		assert.Positive(t, int64(rule.Window), group)
	}
}
