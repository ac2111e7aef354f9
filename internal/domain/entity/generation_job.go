// Package entity 定义领域实体
package entity

import (
	"time"
)

// JobOwner 任务关联的文档与用户，用于把章节结果回写会话记忆
type JobOwner struct {
	DocumentID string `json:"document_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// GenerationJob 分章节拉取的长文档生成任务
type GenerationJob struct {
	ID           string    `json:"id"`
	Outline      Outline   `json:"outline"`
	PriorSummary string    `json:"prior_summary"`
	Owner        JobOwner  `json:"owner"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewGenerationJob 创建新任务
func NewGenerationJob(id string, outline *Outline, owner JobOwner, now time.Time) *GenerationJob {
	return &GenerationJob{
		ID:        id,
		Outline:   *outline,
		Owner:     owner,
		CreatedAt: now,
	}
}

// Section 按下标取章节
func (j *GenerationJob) Section(index int) (SectionDescriptor, bool) {
	if index < 0 || index >= len(j.Outline.Sections) {
		return SectionDescriptor{}, false
	}
	return j.Outline.Sections[index], true
}

// Total 章节总数
func (j *GenerationJob) Total() int {
	return len(j.Outline.Sections)
}

// DocContext 返回章节生成上下文
func (j *GenerationJob) DocContext() DocContext {
	return DocContext{Title: j.Outline.Title, Format: j.Outline.Format}
}

// ExpiresAt 硬过期时间，与活跃度无关
func (j *GenerationJob) ExpiresAt(ttl time.Duration) time.Time {
	return j.CreatedAt.Add(ttl)
}

// Expired 在 now 时刻是否已过期
func (j *GenerationJob) Expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(j.ExpiresAt(ttl))
}
