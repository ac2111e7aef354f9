package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// slidingWindowScript 清理窗口外记录后计数；未超限时记录本次请求
// 返回 {allowed, remaining, retry_after_ms}
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = tonumber(oldest[2]) + window - now
	end
	return {0, 0, retry}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, limit - count - 1, 0}
`)

// RateLimiter 基于有序集合的滑动窗口限流，单次脚本调用保证原子性
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 返回剩余配额与重试等待；retryAfter>0 表示本次被拒绝
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (int, time.Duration, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	defer span.End()
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	)

	now := l.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())
	res, err := slidingWindowScript.Run(ctx, l.client.rdb, []string{key}, now, window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		span.RecordError(err)
		return 0, 0, err
	}
	if len(res) != 3 {
		return 0, 0, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	allowed := res[0] == 1
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed))
	if allowed {
		return int(res[1]), 0, nil
	}
	retry := time.Duration(res[2]) * time.Millisecond
	if retry <= 0 {
		retry = time.Millisecond
	}
	return 0, retry, nil
}

// BuildRateLimitKey 按调用方与路由构建限流键
func BuildRateLimitKey(caller, route string) string {
	return Key("ratelimit", caller, route)
}
