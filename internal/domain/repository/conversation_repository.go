// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"docs-agent-api/internal/domain/entity"
)

// ConversationMemory 会话记忆，按 (文档, 用户) 分区的追加日志
type ConversationMemory interface {
	// History 按时间顺序返回全部轮次
	History(ctx context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error)

	// Append 追加一轮
	Append(ctx context.Context, key entity.MemoryKey, role entity.Role, content string) error

	// Clear 清空分区
	Clear(ctx context.Context, key entity.MemoryKey) error
}

// ConversationTurnRepository 会话轮次持久化
type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error
	ListByKey(ctx context.Context, key entity.MemoryKey, limit int) ([]*entity.ConversationTurn, error)
	DeleteByKey(ctx context.Context, key entity.MemoryKey) (int64, error)
}
