package repository

import (
	"context"

	"docs-agent-api/internal/domain/entity"
)

// LLMUsageEventRepository 用量流水仓储
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error
	// SumByDocument 统计文档累计消耗的 token
	SumByDocument(ctx context.Context, documentID string) (int64, error)
}
