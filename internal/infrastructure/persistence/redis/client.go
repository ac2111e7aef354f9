// Package redis 提供基于 Redis 的任务注册表、文档状态、缓存与限流实现
package redis

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"docs-agent-api/internal/config"
	"docs-agent-api/pkg/metrics"
)

var tracer = otel.Tracer("redis")

// KeyPrefix 本服务所有键的命名空间
const KeyPrefix = "docs:"

// Key 拼接带命名空间的键，如 Key("job", id) -> docs:job:<id>
func Key(parts ...string) string {
	return KeyPrefix + strings.Join(parts, ":")
}

// Client Redis 客户端
type Client struct {
	rdb *redis.Client
}

// NewClient 创建客户端并在 DialTimeout 内验证连接
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", rdb.Options().Addr, err)
	}
	return NewClientFromRedis(rdb), nil
}

// NewClientFromRedis 包装已有连接并挂载命令耗时指标
func NewClientFromRedis(rdb *redis.Client) *Client {
	rdb.AddHook(metricsHook{})
	return &Client{rdb: rdb}
}

// Redis 底层客户端，供消息流使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 供 /ready 使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// IsNil 是否为键不存在
func IsNil(err error) bool {
	return stderrors.Is(err, redis.Nil)
}

// metricsHook 记录命令耗时；redis.Nil 视为成功
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observeCommand(cmd.Name(), err, start)
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observeCommand("pipeline", err, start)
		return err
	}
}

func observeCommand(name string, err error, start time.Time) {
	status := "ok"
	if err != nil && !IsNil(err) {
		status = "error"
	}
	metrics.RedisCommandDuration.WithLabelValues(strings.ToLower(name), status).Observe(time.Since(start).Seconds())
}
