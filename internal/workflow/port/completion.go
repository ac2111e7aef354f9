package port

import (
	"context"

	"docs-agent-api/internal/domain/entity"
)

// CompletionRequest 一次结构化补全调用
type CompletionRequest struct {
	// Workflow 调用来源，用于指标与追踪
	Workflow   string
	SchemaName string
	Schema     map[string]any
	Strict     bool
	MaxTokens  int

	System  string
	History []*entity.ConversationTurn
	User    string
}

// CompletionProvider 结构化补全能力，返回模型输出的原始文本
type CompletionProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}
