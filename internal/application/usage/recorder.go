// Package usage 记录并汇总 LLM 调用用量
package usage

import (
	"context"
	"fmt"
	"strings"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/internal/domain/service"
)

// Publisher 异步落库时的用量发布端
type Publisher interface {
	PublishLLMUsage(ctx context.Context, evt *entity.LLMUsageEvent) error
}

// NewEvent 校验并构建用量流水；没有文档归属的调用返回 nil
func NewEvent(in service.LLMUsageInput) (*entity.LLMUsageEvent, error) {
	documentID := strings.TrimSpace(in.Owner.DocumentID)
	if documentID == "" {
		return nil, nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return nil, fmt.Errorf("invalid token usage: prompt=%d completion=%d", in.PromptTokens, in.CompletionTokens)
	}
	return &entity.LLMUsageEvent{
		DocumentID:       documentID,
		UserID:           strings.TrimSpace(in.Owner.UserID),
		Workflow:         strings.TrimSpace(in.Workflow),
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
	}, nil
}

// Recorder 同步写入用量流水
type Recorder struct {
	repo repository.LLMUsageEventRepository
}

var _ service.LLMUsageRecorder = (*Recorder)(nil)

func NewRecorder(repo repository.LLMUsageEventRepository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	evt, err := NewEvent(in)
	if err != nil || evt == nil {
		return err
	}
	return r.repo.Create(ctx, evt)
}

// StreamRecorder 把用量发布到消息流，由 usage worker 落库
type StreamRecorder struct {
	publisher Publisher
}

var _ service.LLMUsageRecorder = (*StreamRecorder)(nil)

func NewStreamRecorder(publisher Publisher) *StreamRecorder {
	return &StreamRecorder{publisher: publisher}
}

func (r *StreamRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	evt, err := NewEvent(in)
	if err != nil || evt == nil {
		return err
	}
	return r.publisher.PublishLLMUsage(ctx, evt)
}
