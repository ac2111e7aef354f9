package service

import (
	"context"
	"time"
)

// GenerationEventType 生成事件类型
type GenerationEventType string

const (
	EventDocumentGenerated GenerationEventType = "document.generated"
	EventJobStarted        GenerationEventType = "job.started"
	EventSectionGenerated  GenerationEventType = "section.generated"
	EventSectionEdited     GenerationEventType = "section.edited"
)

// GenerationEvent 生成流程的业务事件
type GenerationEvent struct {
	Type       GenerationEventType `json:"type"`
	Mode       string              `json:"mode,omitempty"`
	DocType    string              `json:"doc_type,omitempty"`
	JobID      string              `json:"job_id,omitempty"`
	DocumentID string              `json:"document_id,omitempty"`
	UserID     string              `json:"user_id,omitempty"`
	SectionID  string              `json:"section_id,omitempty"`
	Index      int                 `json:"index,omitempty"`
	Total      int                 `json:"total,omitempty"`
	BlockCount int                 `json:"block_count,omitempty"`
	At         time.Time           `json:"at"`
}

// GenerationEventPublisher 发布生成事件；失败不影响主流程
type GenerationEventPublisher interface {
	PublishGenerationEvent(ctx context.Context, evt *GenerationEvent) error
}

// NopEventPublisher 丢弃全部事件
type NopEventPublisher struct{}

func (NopEventPublisher) PublishGenerationEvent(context.Context, *GenerationEvent) error { return nil }
