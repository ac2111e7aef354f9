// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"docs-agent-api/internal/domain/entity"
)

// JobRepository 长文档生成任务注册表
// 任务自创建起按固定 TTL 硬过期；过期与不存在均返回 errors.ErrJobNotFound
type JobRepository interface {
	// Create 注册任务
	Create(ctx context.Context, job *entity.GenerationJob) error

	// Get 根据 ID 获取任务快照
	Get(ctx context.Context, id string) (*entity.GenerationJob, error)

	// UpdateSummary 覆盖写入滚动摘要，不续期
	UpdateSummary(ctx context.Context, id string, summary string) error
}
