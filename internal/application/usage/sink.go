package usage

import (
	"context"
	"fmt"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/internal/infrastructure/messaging"
)

// Sink usage worker 的落库端
type Sink struct {
	repo repository.LLMUsageEventRepository
}

func NewSink(repo repository.LLMUsageEventRepository) *Sink {
	return &Sink{repo: repo}
}

// Persist 写入一条从消息流收到的用量
func (s *Sink) Persist(ctx context.Context, evt *entity.LLMUsageEvent) error {
	if evt == nil || evt.DocumentID == "" {
		return fmt.Errorf("usage event without document id")
	}
	// ID 交给数据库生成，生产端的 created_at 保留
	evt.ID = ""
	return s.repo.Create(ctx, evt)
}

// HandleMessage 作为 messaging.MessageHandler 注册到用量流
func (s *Sink) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	var evt entity.LLMUsageEvent
	if err := msg.UnmarshalPayload(&evt); err != nil {
		return fmt.Errorf("decode usage payload: %w", err)
	}
	if evt.DocumentID == "" {
		evt.DocumentID = msg.DocumentID
	}
	return s.Persist(ctx, &evt)
}
