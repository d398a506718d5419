package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/strategiq/swot/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	defaultRateLimitMax    = 20
	defaultRateLimitWindow = time.Minute
	defaultRateLimitPrefix = "swot:rate_limit:"
)

type RateLimitOptions struct {
	Max    int
	Window time.Duration
	Prefix string
	Now    func() time.Time
}

func normalizeRateLimitOptions(opts RateLimitOptions) RateLimitOptions {
	if opts.Max <= 0 {
		opts.Max = defaultRateLimitMax
	}
	if opts.Window <= 0 {
		opts.Window = defaultRateLimitWindow
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultRateLimitPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

// RateLimit enforces a fixed-window request limit per client IP. Redis
// failures let the request through.
func RateLimit(rdb *redis.Client, log *zap.Logger, opts RateLimitOptions) gin.HandlerFunc {
	opts = normalizeRateLimitOptions(opts)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || rdb == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := opts.Now().UnixNano() / int64(opts.Window)
		key := fmt.Sprintf("%s%s:%d", opts.Prefix, ip, window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, opts.Window+time.Second)
		}

		if count > int64(opts.Max) {
			log.Info("rate limited", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", strconv.Itoa(int(opts.Window.Seconds())))
			response.TooManyRequests(c)
			return
		}

		c.Next()
	}
}
