package messaging

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/service"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newTestConsumer(rdb *redis.Client, stream Stream, retryLimit int) *Consumer {
	return NewConsumer(rdb, ConsumerConfig{
		Stream:       stream,
		Group:        ConsumerGroupUsageWriter,
		ConsumerName: "test-1",
		BlockTimeout: 10 * time.Millisecond,
		RetryLimit:   retryLimit,
	})
}

func TestProducer_PublishGenerationEvent(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	producer := NewProducer(rdb, 100)

	err := producer.PublishGenerationEvent(ctx, &service.GenerationEvent{
		Type:       service.EventJobStarted,
		JobID:      "job-1",
		DocumentID: "doc-1",
		Total:      8,
	})
	require.NoError(t, err)

	entries, err := rdb.XRange(ctx, string(StreamGenerationEvents), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	msg, ok := decodeMessage(entries[0])
	require.True(t, ok)
	assert.Equal(t, TypeGenerationEvent, msg.Type)
	assert.Equal(t, "doc-1", msg.DocumentID)
	assert.Equal(t, "job-1", msg.GetMetadata("job_id"))
	assert.Equal(t, string(service.EventJobStarted), msg.GetMetadata("event_type"))

	var evt service.GenerationEvent
	require.NoError(t, msg.UnmarshalPayload(&evt))
	assert.Equal(t, 8, evt.Total)
}

func TestConsumer_DeliversAndAcks(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	consumer := newTestConsumer(rdb, StreamLLMUsage, 3)
	require.NoError(t, consumer.ensureGroup(ctx))
	// 重复创建消费者组不报错
	require.NoError(t, consumer.ensureGroup(ctx))

	var got []*entity.LLMUsageEvent
	consumer.RegisterHandler(TypeLLMUsage, func(_ context.Context, msg *Message) error {
		var evt entity.LLMUsageEvent
		if err := msg.UnmarshalPayload(&evt); err != nil {
			return err
		}
		got = append(got, &evt)
		return nil
	})

	producer := NewProducer(rdb, 0)
	require.NoError(t, producer.PublishLLMUsage(ctx, &entity.LLMUsageEvent{
		DocumentID: "doc-1", Workflow: "section", TokensPrompt: 10, TokensCompletion: 5,
	}))

	n, err := consumer.poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, 15, got[0].TotalTokens())

	pending, err := rdb.XPending(ctx, string(StreamLLMUsage), string(ConsumerGroupUsageWriter)).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestConsumer_FailedMessageGoesToDLQ(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	consumer := newTestConsumer(rdb, StreamLLMUsage, 1)
	require.NoError(t, consumer.ensureGroup(ctx))
	consumer.RegisterHandler(TypeLLMUsage, func(context.Context, *Message) error {
		return stderrors.New("database down")
	})

	require.NoError(t, NewProducer(rdb, 0).PublishLLMUsage(ctx, &entity.LLMUsageEvent{DocumentID: "doc-1"}))

	_, err := consumer.poll(ctx)
	require.NoError(t, err)

	dlq, err := rdb.XLen(ctx, StreamLLMUsage.DLQStream()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), dlq)
}

func TestConsumer_UnknownTypeIsAcked(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	consumer := newTestConsumer(rdb, StreamGenerationEvents, 3)
	require.NoError(t, consumer.ensureGroup(ctx))

	require.NoError(t, NewProducer(rdb, 0).PublishGenerationEvent(ctx, &service.GenerationEvent{Type: service.EventSectionGenerated}))
	_, err := consumer.poll(ctx)
	require.NoError(t, err)

	pending, err := rdb.XPending(ctx, string(StreamGenerationEvents), string(ConsumerGroupUsageWriter)).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestBackoffConfig_CalculateBackoff(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, time.Minute, cfg.CalculateBackoff(20))
}
