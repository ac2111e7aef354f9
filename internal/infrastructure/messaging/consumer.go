package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docs-agent-api/pkg/logger"
)

// MessageHandler 消息处理函数，返回错误时消息留在 pending 中等待重试
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// Consumer 消费者组成员：读取新消息，按退避重试失败消息，超过重试上限移入死信流
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	reclaimIdle := 2 * cfg.Backoff.Max
	if reclaimIdle < 5*time.Minute {
		reclaimIdle = 5 * time.Minute
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		reclaimIdle:   reclaimIdle,
		retryLimit:    cfg.RetryLimit,
		backoff:       cfg.Backoff,
		handlers:      make(map[string]MessageHandler),
	}
}

// RegisterHandler 按消息类型注册处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 确保消费者组存在并在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("consumer already running")
	}
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(ctx)
	return nil
}

// Stop 停止消费并等待当前批次处理完
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()
	<-done
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)
	logger.Info(ctx, "consumer started", "stream", c.stream, "group", c.group, "consumer", c.consumerName)

	lastReclaim := time.Now().Add(-c.claimInterval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			logger.Info(ctx, "consumer stopped")
			return
		default:
		}

		c.sweepPending(ctx, true)
		if time.Since(lastReclaim) >= c.claimInterval {
			c.sweepPending(ctx, false)
			lastReclaim = time.Now()
		}

		if _, err := c.poll(ctx); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "failed to read from stream", err, "stream", c.stream)
			time.Sleep(time.Second)
		}
	}
}

// poll 读取一批新消息并处理，返回处理条数
func (c *Consumer) poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    string(c.group),
		Consumer: c.consumerName,
		Streams:  []string{string(c.stream), ">"},
		Count:    10,
		Block:    c.blockTimeout,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, s := range streams {
		for _, xmsg := range s.Messages {
			c.processMessage(ctx, xmsg)
			n++
		}
	}
	return n, nil
}

func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, ok := decodeMessage(xmsg)
	if !ok {
		logger.Warn(ctx, "dropping malformed stream message", "message_id", xmsg.ID)
		c.ack(ctx, xmsg.ID)
		return
	}

	if msg.DocumentID != "" {
		ctx = logger.WithContext(ctx, logger.DocumentIDKey, msg.DocumentID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	span.SetAttributes(attribute.String("message.id", msg.ID), attribute.String("message.type", msg.Type))

	c.mu.RLock()
	handler, exists := c.handlers[msg.Type]
	c.mu.RUnlock()
	if !exists {
		logger.Warn(ctx, "no handler for message type", "type", msg.Type)
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "handler failed", err, "message_id", msg.ID)
		c.handleFailure(ctx, xmsg.ID, msg, err)
		return
	}
	c.ack(ctx, xmsg.ID)
}

func decodeMessage(xmsg redis.XMessage) (*Message, bool) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, false
	}
	return &msg, true
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

func (c *Consumer) handleFailure(ctx context.Context, streamID string, msg *Message, err error) {
	retryCount := c.deliveryCount(ctx, streamID)
	if retryCount >= c.retryLimit {
		logger.Warn(ctx, "message moved to DLQ after max retries", "message_id", msg.ID, "retry_count", retryCount)
		c.deadLetter(ctx, streamID, msg, err)
		return
	}
	logger.Info(ctx, "message left pending for retry", "message_id", msg.ID, "retry_count", retryCount)
}

func (c *Consumer) deliveryCount(ctx context.Context, streamID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  streamID,
		End:    streamID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// deadLetter 写入死信流并确认原消息
func (c *Consumer) deadLetter(ctx context.Context, streamID string, msg *Message, cause error) {
	data, _ := json.Marshal(map[string]any{
		"original_stream": string(c.stream),
		"data":            msg,
		"error":           cause.Error(),
		"failed_at":       time.Now().Unix(),
	})
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream.DLQStream(),
		Values: map[string]any{"data": string(data)},
	}).Err(); err != nil {
		logger.Error(ctx, "failed to write DLQ", err, "message_id", msg.ID)
		return
	}
	c.ack(ctx, streamID)
}

// sweepPending own=true 时按退避重试本消费者的 pending；否则接管其他消费者长时间未确认的消息
func (c *Consumer) sweepPending(ctx context.Context, own bool) {
	args := &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  "-",
		End:    "+",
		Count:  20,
	}
	if own {
		args.Consumer = c.consumerName
	}

	pending, err := c.client.XPendingExt(ctx, args).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Error(ctx, "failed to query pending messages", err, "stream", c.stream)
		}
		return
	}

	for _, p := range pending {
		if !own && p.Consumer == c.consumerName {
			continue
		}

		minIdle := c.reclaimIdle
		if own {
			minIdle = c.backoff.CalculateBackoff(int(p.RetryCount))
		}
		exhausted := int(p.RetryCount) >= c.retryLimit
		if exhausted && own {
			minIdle = 0
		}
		if p.Idle < minIdle {
			continue
		}

		claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   string(c.stream),
			Group:    string(c.group),
			Consumer: c.consumerName,
			MinIdle:  minIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			logger.Error(ctx, "failed to claim pending message", err, "message_id", p.ID)
			continue
		}

		for _, xmsg := range claimed {
			if !exhausted {
				c.processMessage(ctx, xmsg)
				continue
			}
			msg, ok := decodeMessage(xmsg)
			if !ok {
				c.ack(ctx, xmsg.ID)
				continue
			}
			c.deadLetter(ctx, xmsg.ID, msg, fmt.Errorf("message exceeded max retries"))
		}
	}
}
