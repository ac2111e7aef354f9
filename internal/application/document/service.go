package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/internal/domain/service"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
)

// 请求中的 mode 取值
const (
	RequestModeEdit  = "edit"
	RequestModeBatch = "batch"
)

// GenerateInput 生成请求
type GenerateInput struct {
	Prompt     string
	DocType    entity.DocumentFormat
	DocumentID string
	UserID     string
	Mode       string
}

// GenerateOutput 生成结果，按走的分支只填一个字段
type GenerateOutput struct {
	Batch    *BatchResult
	Start    *StartResult
	Document *entity.DocumentResponse
	Edit     *SectionEdit
}

// Payload 返回实际结果
func (o *GenerateOutput) Payload() any {
	switch {
	case o.Batch != nil:
		return o.Batch
	case o.Start != nil:
		return o.Start
	case o.Edit != nil:
		return o.Edit
	default:
		return o.Document
	}
}

// Service 对外的文档生成入口：选择生成路径并维护会话记忆
type Service struct {
	orchestrator *Orchestrator
	singleShot   *SingleShotGenerator
	editor       *SectionEditor
	inline       *InlineEditor
	memory       repository.ConversationMemory
	states       repository.DocumentStateRepository
	summarizer   *Summarizer
	events       service.GenerationEventPublisher
}

func NewService(
	orchestrator *Orchestrator,
	singleShot *SingleShotGenerator,
	editor *SectionEditor,
	inline *InlineEditor,
	memory repository.ConversationMemory,
	states repository.DocumentStateRepository,
	summarizer *Summarizer,
	events service.GenerationEventPublisher,
) *Service {
	if events == nil {
		events = service.NopEventPublisher{}
	}
	return &Service{
		orchestrator: orchestrator,
		singleShot:   singleShot,
		editor:       editor,
		inline:       inline,
		memory:       memory,
		states:       states,
		summarizer:   summarizer,
		events:       events,
	}
}

// Generate 按 mode 与文档类型分派：edit 走章节编辑，长文档类型走分阶段生成，其余单次生成
func (s *Service) Generate(ctx context.Context, in *GenerateInput) (*GenerateOutput, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, errors.ErrInvalidParam.WithDetail("prompt is required")
	}
	docType := in.DocType
	if docType == "" {
		docType = entity.FormatGeneral
	}

	key := entity.MemoryKey{DocumentID: in.DocumentID, UserID: in.UserID}
	ctx = service.WithUsageOwner(ctx, in.DocumentID, in.UserID)
	if in.DocumentID != "" {
		ctx = logger.WithContext(ctx, logger.DocumentIDKey, in.DocumentID)
	}

	history, err := s.snapshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if in.Mode == RequestModeEdit {
		if err := CheckEditContext(in.DocumentID, history); err != nil {
			return nil, err
		}
	}
	if err := s.record(ctx, key, entity.RoleUser, in.Prompt); err != nil {
		return nil, err
	}

	switch {
	case in.Mode == RequestModeEdit:
		logger.Info(ctx, "dispatching section edit", "doc_type", docType)
		edit, err := s.editor.EditSection(ctx, &EditInput{
			Prompt:     in.Prompt,
			DocType:    docType,
			DocumentID: in.DocumentID,
			UserID:     in.UserID,
			History:    history,
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, &service.GenerationEvent{
			Type: service.EventSectionEdited, Mode: RequestModeEdit, DocType: string(docType),
			DocumentID: in.DocumentID, UserID: in.UserID, SectionID: edit.TargetSectionID, BlockCount: len(edit.Blocks),
		})
		return &GenerateOutput{Edit: edit}, nil

	case docType.IsIterative() && in.Mode == RequestModeBatch:
		logger.Info(ctx, "dispatching iterative batch generation", "doc_type", docType)
		batch, err := s.orchestrator.RunBatch(ctx, in.Prompt, docType, history)
		if err != nil {
			return nil, err
		}
		if err := s.remember(ctx, key, batchDigest(batch)); err != nil {
			return nil, err
		}
		s.publish(ctx, &service.GenerationEvent{
			Type: service.EventDocumentGenerated, Mode: ModeIterative, DocType: string(docType),
			DocumentID: in.DocumentID, UserID: in.UserID, Total: len(batch.Sections),
		})
		return &GenerateOutput{Batch: batch}, nil

	case docType.IsIterative():
		logger.Info(ctx, "dispatching iterative job", "doc_type", docType)
		owner := entity.JobOwner{DocumentID: in.DocumentID, UserID: in.UserID}
		start, err := s.orchestrator.Start(ctx, in.Prompt, docType, history, owner)
		if err != nil {
			return nil, err
		}
		if err := s.remember(ctx, key, startDigest(start)); err != nil {
			return nil, err
		}
		return &GenerateOutput{Start: start}, nil

	default:
		logger.Info(ctx, "dispatching single-shot generation", "doc_type", docType)
		doc, err := s.singleShot.Generate(ctx, in.Prompt, docType, history)
		if err != nil {
			return nil, err
		}
		if err := s.remember(ctx, key, documentDigest(doc)); err != nil {
			return nil, err
		}
		s.publish(ctx, &service.GenerationEvent{
			Type: service.EventDocumentGenerated, Mode: ModeSingleShot, DocType: string(docType),
			DocumentID: in.DocumentID, UserID: in.UserID, BlockCount: len(doc.Operation.Content()),
		})
		return &GenerateOutput{Document: doc}, nil
	}
}

// PullSection 拉取章节；任务关联了文档时把章节摘要写入会话记忆
func (s *Service) PullSection(ctx context.Context, jobID string, index int, userID string) (*SectionPullResult, error) {
	res, err := s.orchestrator.Pull(ctx, jobID, index, userID)
	if err != nil {
		return nil, err
	}
	if res.Owner.DocumentID != "" {
		key := entity.MemoryKey{DocumentID: res.Owner.DocumentID, UserID: res.Owner.UserID}
		digest := fmt.Sprintf("Generated section %d/%d (%s). %s", res.Index+1, res.Total, res.SectionID,
			s.summarizer.SectionFragment(res.Title, res.Blocks))
		if err := s.remember(ctx, key, digest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// InlineEdit 行内 patch/insert
func (s *Service) InlineEdit(ctx context.Context, in *InlineEditInput) (*entity.DocumentResponse, error) {
	ctx = service.WithUsageOwner(ctx, in.DocumentID, in.UserID)
	return s.inline.Edit(ctx, in)
}

// History 返回会话记忆
func (s *Service) History(ctx context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error) {
	return s.memory.History(ctx, key)
}

// ClearHistory 清空会话记忆
func (s *Service) ClearHistory(ctx context.Context, key entity.MemoryKey) error {
	if err := s.memory.Clear(ctx, key); err != nil {
		return err
	}
	logger.Info(ctx, "conversation history cleared", "document_id", key.DocumentID)
	return nil
}

// SyncState 保存客户端同步的文档状态
func (s *Service) SyncState(ctx context.Context, key entity.MemoryKey, state *entity.DocumentState) error {
	state.UpdatedAt = time.Now()
	return s.states.Save(ctx, key, state)
}

// State 读取文档状态，未同步过返回 ErrDocumentNotFound
func (s *Service) State(ctx context.Context, key entity.MemoryKey) (*entity.DocumentState, error) {
	return s.states.Get(ctx, key)
}

// snapshot 本轮输入之前的历史；无文档 ID 时不使用记忆
func (s *Service) snapshot(ctx context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error) {
	if key.DocumentID == "" {
		return nil, nil
	}
	return s.memory.History(ctx, key)
}

func (s *Service) record(ctx context.Context, key entity.MemoryKey, role entity.Role, content string) error {
	if key.DocumentID == "" {
		return nil
	}
	return s.memory.Append(ctx, key, role, content)
}

func (s *Service) remember(ctx context.Context, key entity.MemoryKey, content string) error {
	return s.record(ctx, key, entity.RoleAssistant, content)
}

func (s *Service) publish(ctx context.Context, evt *service.GenerationEvent) {
	evt.At = time.Now()
	if err := s.events.PublishGenerationEvent(ctx, evt); err != nil {
		logger.Warn(ctx, "failed to publish generation event", "type", evt.Type, "error", err.Error())
	}
}

func batchDigest(b *BatchResult) string {
	titles := make([]string, len(b.Sections))
	for i, sec := range b.Sections {
		titles[i] = "[" + sec.SectionID + "] " + sec.Title
	}
	return fmt.Sprintf("Generated %s \"%s\" with %d sections: %s", b.Document.Format, b.Document.Title, len(b.Sections), strings.Join(titles, "; "))
}

func startDigest(st *StartResult) string {
	titles := make([]string, len(st.SectionsMeta))
	for i, m := range st.SectionsMeta {
		titles[i] = "[" + m.SectionID + "] " + m.Title
	}
	return fmt.Sprintf("Created outline for %s \"%s\" (job %s): %s", st.Document.Format, st.Document.Title, st.JobID, strings.Join(titles, "; "))
}

func documentDigest(d *entity.DocumentResponse) string {
	if op, ok := d.Operation.(entity.CreateOperation); ok {
		return fmt.Sprintf("Generated %s \"%s\" with %d blocks.", op.Document.Format, op.Document.Title, len(op.Document.Blocks))
	}
	return fmt.Sprintf("Returned %s operation with %d blocks.", d.Operation.Kind(), len(d.Operation.Content()))
}
