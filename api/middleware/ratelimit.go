package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// RateLimiter throttles callers by key, usually the client IP. Idle keys
// are evicted after ten windows.
type RateLimiter struct {
	limit   int
	window  time.Duration
	buckets *ttlcache.Cache[string, *rate.Limiter]
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}

	buckets := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](10 * window),
	)
	go buckets.Start()

	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: buckets,
	}
}

// Allow reports whether key may proceed. A non-positive limit disables limiting.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	item, _ := rl.buckets.GetOrSet(key,
		rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit))
	return item.Value().Allow()
}

func (rl *RateLimiter) Close() {
	rl.buckets.Stop()
}

func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	retryAfter := int(math.Ceil(limiter.window.Seconds()))

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
