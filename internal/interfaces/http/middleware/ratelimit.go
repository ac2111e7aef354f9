package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docs-agent-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute 每个调用方每个路由每分钟的请求数
	RequestsPerMinute int
}

// RateLimiter 返回剩余配额与重试等待，retryAfter>0 表示拒绝
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (remaining int, retryAfter time.Duration, err error)
}

// RateLimit 限流中间件，按 user_id 区分调用方，匿名调用按客户端 IP
func RateLimit(cfg RateLimitConfig, limiter RateLimiter, keyFn func(caller, route string) string) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}

	return func(c *gin.Context) {
		caller := c.GetString("user_id")
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		remaining, retryAfter, err := limiter.Allow(c.Request.Context(), keyFn(caller, route), cfg.RequestsPerMinute, time.Minute)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
