// Package messaging 基于 Redis Stream 的事件发布与消费
package messaging

import (
	"encoding/json"
	"time"
)

// 消息类型
const (
	TypeGenerationEvent = "generation_event"
	TypeLLMUsage        = "llm_usage"
)

// Message 流消息信封
type Message struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	DocumentID string            `json:"document_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Payload    json.RawMessage   `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewMessage 序列化载荷并构建消息
func NewMessage(id, msgType, documentID, userID string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:         id,
		Type:       msgType,
		DocumentID: documentID,
		UserID:     userID,
		Payload:    data,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream 流名称
type Stream string

const (
	StreamGenerationEvents Stream = "stream:docs:events"
	StreamLLMUsage         Stream = "stream:docs:usage"
)

// DLQStream 对应的死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组
type ConsumerGroup string

const (
	ConsumerGroupUsageWriter ConsumerGroup = "cg-usage-writer"
)

// BackoffConfig 重试退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 第 retryCount 次重试前的等待
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	backoff := c.Initial
	for i := 0; i < retryCount; i++ {
		backoff = time.Duration(float64(backoff) * c.Multiplier)
		if backoff > c.Max {
			return c.Max
		}
	}
	return backoff
}
