package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/service"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 流消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

var _ service.GenerationEventPublisher = (*Producer)(nil)

func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 追加消息到流，按 MAXLEN 近似裁剪
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "success").Inc()
	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// PublishGenerationEvent 发布生成生命周期事件
func (p *Producer) PublishGenerationEvent(ctx context.Context, evt *service.GenerationEvent) error {
	msg, err := NewMessage(uuid.NewString(), TypeGenerationEvent, evt.DocumentID, evt.UserID, evt)
	if err != nil {
		return err
	}
	msg.SetMetadata("event_type", string(evt.Type))
	if evt.JobID != "" {
		msg.SetMetadata("job_id", evt.JobID)
	}
	_, err = p.Publish(ctx, StreamGenerationEvents, msg)
	return err
}

// PublishLLMUsage 发布用量流水，由 usage worker 落库
func (p *Producer) PublishLLMUsage(ctx context.Context, evt *entity.LLMUsageEvent) error {
	msg, err := NewMessage(uuid.NewString(), TypeLLMUsage, evt.DocumentID, evt.UserID, evt)
	if err != nil {
		return err
	}
	msg.SetMetadata("workflow", evt.Workflow)
	_, err = p.Publish(ctx, StreamLLMUsage, msg)
	return err
}
