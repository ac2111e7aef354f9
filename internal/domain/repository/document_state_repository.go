// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"docs-agent-api/internal/domain/entity"
)

// DocumentStateRepository 客户端同步的文档状态
type DocumentStateRepository interface {
	Save(ctx context.Context, key entity.MemoryKey, state *entity.DocumentState) error

	// Get 不存在时返回 errors.ErrDocumentNotFound
	Get(ctx context.Context, key entity.MemoryKey) (*entity.DocumentState, error)
}
