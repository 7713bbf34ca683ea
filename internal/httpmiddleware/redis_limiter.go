package httpmiddleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"schoolattend/internal/logger"
)

// RedisLimiter is a fixed-window counter shared by every replica through Redis.
type RedisLimiter struct {
	client  *redis.Client
	name    string
	limit   int64
	window  time.Duration
	onLimit OnLimited
}

// NewRedisLimiter allows limit requests per window for each client, counted under
// keys prefixed with name.
func NewRedisLimiter(client *redis.Client, name string, limit int, window time.Duration, onLimit OnLimited) *RedisLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, name: name, limit: int64(limit), window: window, onLimit: onLimit}
}

// Allow counts one request for key. It returns the time left in the window when
// the limit is exceeded.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := "ratelimit:" + l.name + ":" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, 0, errors.Wrap(err, "incr rate limit key")
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, 0, errors.Wrap(err, "expire rate limit key")
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}
	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// a key left without expiry would block the client forever
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
		ttl = l.window
	}
	return false, ttl, nil
}

// GinMiddleware enforces the limit keyed by client IP. Redis failures let the
// request through and are logged.
func (l *RedisLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.client == nil {
			c.Next()
			return
		}
		ok, wait, err := l.Allow(c.Request.Context(), clientKey(c))
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable", zap.String("limiter", l.name), zap.Error(err))
		}
		if !ok {
			tooMany(c, l.name, wait, l.onLimit)
			return
		}
		c.Next()
	}
}
