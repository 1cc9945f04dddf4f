package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/salestax/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const keyCalculateClient = "salestax:calculate:client:%s"

// Limiter decides whether one more request from key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*RateLimitResult, error)
}

// NewCalculateLimiter returns nil when rate limiting is disabled. With
// redis configured the bucket is shared across instances, otherwise each
// process keeps its own buckets.
func NewCalculateLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("calculate rate limit must be positive")
	}

	if client != nil {
		return &redisLimiter{
			bucket: NewTokenBucket(client),
			rate:   limitCfg.Rate,
			burst:  limitCfg.Burst,
		}, nil
	}

	log.Info("redis disabled, using in-process rate limiter")
	return NewLocalLimiter(limitCfg.Rate, limitCfg.Burst), nil
}

type redisLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCalculateClient, strings.TrimSpace(key)), l.rate, l.burst)
}

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalLimiter keeps one x/time/rate limiter per key in memory.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	rate     float64
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewLocalLimiter(r float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		rate:     r,
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter key is empty")
	}

	now := l.now()
	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		l.sweepLocked(now)
		entry = &localEntry{limiter: rate.NewLimiter(rate.Limit(l.rate), l.burst)}
		l.limiters[key] = entry
	}
	entry.lastAccess = now
	l.mu.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return &RateLimitResult{
			Allowed:    false,
			Limit:      l.burst,
			ResetTime:  now.Add(delay),
			RetryAfter: delay,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Limit:     l.burst,
		Remaining: int(entry.limiter.TokensAt(now)),
		ResetTime: now,
	}, nil
}

// sweepLocked drops buckets idle for longer than idleTTL.
func (l *LocalLimiter) sweepLocked(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastAccess) > l.idleTTL {
			delete(l.limiters, k)
		}
	}
}
