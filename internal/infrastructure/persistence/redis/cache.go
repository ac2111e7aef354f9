package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 以 JSON 编码存取的 KV 缓存，用于文档状态与用量汇总
type Cache struct {
	client *Client
	group  singleflight.Group
}

func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return cacheTracer.Start(ctx, "cache."+op, trace.WithAttributes(attribute.String("cache.key", key)))
}

// GetJSON 命中时解码到 dst 并返回 true；未命中返回 false 且不报错
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	ctx, span := c.startSpan(ctx, "GetJSON", key)
	defer span.End()

	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if IsNil(err) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))

	if err := json.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("decode cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 编码后写入，ttl<=0 表示不过期
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, span := c.startSpan(ctx, "SetJSON", key)
	defer span.End()
	span.SetAttributes(attribute.Int64("cache.ttl_ms", ttl.Milliseconds()))

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// GetOrLoad 读穿缓存：同一 key 的并发未命中合并为一次 loader 调用，回写失败只记录在 span 上
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "GetOrLoad", key)
	defer span.End()

	if data, err := c.client.rdb.Get(ctx, key).Bytes(); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return data, nil
	} else if !IsNil(err) {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode loaded value for %s: %w", key, err)
		}
		if err := c.client.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			span.RecordError(err)
		}
		return data, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]byte), nil
}
