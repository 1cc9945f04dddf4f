package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salestax/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(1, 2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	// other clients have their own bucket
	res, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, res.Allowed)

	now = now.Add(time.Second)
	res, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, res.Allowed)

	_, err = l.Allow(ctx, "")
	assert.Error(t, err)
}

func TestLocalLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(1, 1)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(time.Hour)
	_, _ = l.Allow(context.Background(), "b")

	assert.Len(t, l.limiters, 1)
}

func TestNewCalculateLimiter(t *testing.T) {
	log := zap.NewNop()

	l, err := NewCalculateLimiter(config.Config{}, nil, log)
	require.NoError(t, err)
	assert.Nil(t, l)

	_, err = NewCalculateLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true}}, nil, log)
	assert.Error(t, err)

	l, err = NewCalculateLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, Rate: 5, Burst: 10}}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &LocalLimiter{}, l)
}

func TestBucketResult(t *testing.T) {
	res := bucketResult(false, 0, 1_000, 2, 10)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 10, res.Limit)

	res = bucketResult(true, 7, 1_000, 2, 10)
	assert.Equal(t, 7, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	assert.Equal(t, 1.5, castToFloat("1.5"))
	assert.Equal(t, int64(3), castToInt(int64(3)))
}

type stubLimiter struct {
	res *RateLimitResult
	err error
}

func (s stubLimiter) Allow(context.Context, string) (*RateLimitResult, error) {
	return s.res, s.err
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		limiter Limiter
		status  int
	}{
		{name: "disabled", limiter: nil, status: http.StatusOK},
		{name: "allowed", limiter: stubLimiter{res: &RateLimitResult{Allowed: true, Limit: 10, Remaining: 9}}, status: http.StatusOK},
		{name: "denied", limiter: stubLimiter{res: &RateLimitResult{Allowed: false, Limit: 10, RetryAfter: 1500 * time.Millisecond}}, status: http.StatusTooManyRequests},
		{name: "limiter error fails open", limiter: stubLimiter{err: errors.New("redis down")}, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(GinMiddleware(tc.limiter, zap.NewNop()))
			r.POST("/calc", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/calc", nil))

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusTooManyRequests {
				assert.Equal(t, "2", w.Header().Get("Retry-After"))
				assert.Contains(t, w.Body.String(), "rate_limited")
			}
		})
	}
}
