package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window rate limiter backed by the process-wide
// Redis client. With no client it fails open: the limiter degrades to
// a pass-through rather than taking the API down with Redis.
type Limiter struct {
	rdb *redis.Client
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// PerIP limits by client IP using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func (l *Limiter) PerIP(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.rdb == nil {
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		ctx := context.Background()

		val, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			l.rdb.Expire(ctx, key, window)
		}

		if val > int64(maxRequests) {
			rlBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		rlRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
