package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter increments a fixed-window counter and returns its new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keeps window counters in Redis.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

type RateLimiter struct {
	counter Counter
	prefix  string
	limit   int
	window  time.Duration
	log     *zap.Logger
}

func NewRateLimiter(counter Counter, prefix string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, prefix: prefix, limit: limit, window: window, log: log}
}

// Middleware limits each client IP per route. When the counter store is
// unreachable requests are let through.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s:%s", r.prefix, c.FullPath(), c.ClientIP())
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		count, err := r.counter.Incr(ctx, key, r.window)
		cancel()
		if err != nil {
			r.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count > int64(r.limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(r.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}
