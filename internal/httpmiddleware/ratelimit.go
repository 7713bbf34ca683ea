// Package httpmiddleware holds gin middleware shared by every route: rate
// limits, request deadlines and response headers.
package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// OnLimited is called with the limiter name whenever a request is rejected.
type OnLimited func(limiter string)

// TokenBucket is an in-process per-IP limiter. Each instance limits on its own;
// use RedisLimiter where the limit must hold across replicas.
type TokenBucket struct {
	name     string
	capacity float64
	perSec   float64
	idle     time.Duration
	now      func() time.Time
	onLimit  OnLimited

	mu    sync.Mutex
	state map[string]*bucket
	swept time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket allows perMinute requests a minute per client, bursting up to capacity.
// name labels rejections passed to onLimit.
func NewTokenBucket(name string, capacity, perMinute int, onLimit OnLimited) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 60
	}
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		name:     name,
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		idle:     10 * time.Minute,
		now:      time.Now,
		onLimit:  onLimit,
		state:    make(map[string]*bucket),
	}
}

// GinMiddleware enforces the limit keyed by client IP.
func (l *TokenBucket) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.allow(clientKey(c))
		if !ok {
			tooMany(c, l.name, wait, l.onLimit)
			return
		}
		c.Next()
	}
}

// allow takes one token for key, or reports how long until one is available.
func (l *TokenBucket) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)

	b, ok := l.state[key]
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true, 0
	}
	b.tokens = math.Min(l.capacity, b.tokens+now.Sub(b.last).Seconds()*l.perSec)
	b.last = now
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) / l.perSec * float64(time.Second))
	}
	b.tokens--
	return true, 0
}

// sweep drops buckets idle long enough to be full again.
func (l *TokenBucket) sweep(now time.Time) {
	if now.Sub(l.swept) < l.idle {
		return
	}
	l.swept = now
	for k, b := range l.state {
		if now.Sub(b.last) >= l.idle {
			delete(l.state, k)
		}
	}
}

func clientKey(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func tooMany(c *gin.Context, limiter string, retryAfter time.Duration, onLimit OnLimited) {
	if onLimit != nil {
		onLimit(limiter)
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"message": "Too many requests, try again later.",
	})
}
