package document

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	llmctx "docs-agent-api/internal/domain/service"
	"docs-agent-api/internal/workflow/contract"
	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/internal/workflow/prompt"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/tracer"
)

// EditInput 章节编辑请求
type EditInput struct {
	Prompt     string
	DocType    entity.DocumentFormat
	DocumentID string
	UserID     string
	History    []*entity.ConversationTurn
}

// SectionEdit 章节替换结果
type SectionEdit struct {
	TargetSectionID string           `json:"target_section_id"`
	Blocks          entity.BlockList `json:"blocks"`
}

// EditSummary 写入会话记忆的编辑摘要，不保存完整块内容
func EditSummary(sectionID string, blockCount int) string {
	return fmt.Sprintf("Edited section '%s'. Replaced with %d blocks.", sectionID, blockCount)
}

// SectionEditor 基于会话记忆重写某个章节
type SectionEditor struct {
	gateway   *Gateway
	prompts   *prompt.Registry
	memory    repository.ConversationMemory
	states    repository.DocumentStateRepository
	maxTokens int
}

// NewSectionEditor states 可为 nil，此时提示词不附带同步的文档结构
func NewSectionEditor(gateway *Gateway, prompts *prompt.Registry, memory repository.ConversationMemory, states repository.DocumentStateRepository, maxTokens int) *SectionEditor {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &SectionEditor{gateway: gateway, prompts: prompts, memory: memory, states: states, maxTokens: maxTokens}
}

// CheckEditContext 编辑需要文档 ID 和至少一轮既有会话
func CheckEditContext(documentID string, history []*entity.ConversationTurn) error {
	if strings.TrimSpace(documentID) == "" {
		return errors.ErrMissingDocumentContext
	}
	if len(history) == 0 {
		return errors.ErrNoDocumentContext
	}
	return nil
}

// EditSection 缺少文档 ID 或会话历史时不调用模型
func (e *SectionEditor) EditSection(ctx context.Context, in *EditInput) (*SectionEdit, error) {
	ctx, span := tracer.Start(ctx, "document.SectionEditor.EditSection")
	defer span.End()

	if err := CheckEditContext(in.DocumentID, in.History); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("document.id", in.DocumentID))

	key := entity.MemoryKey{DocumentID: in.DocumentID, UserID: in.UserID}
	system, user, err := e.prompts.Render(ctx, prompt.PromptSectionEditV1, map[string]any{
		"format":      strings.ToUpper(string(in.DocType)),
		"doc_outline": e.syncedOutline(ctx, key),
		"prompt":      in.Prompt,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "render section edit prompt")
	}

	raw, err := e.gateway.Request(llmctx.WithWorkflow(ctx, llmctx.WorkflowSectionEdit), &workflowport.CompletionRequest{
		Workflow:   llmctx.WorkflowSectionEdit,
		SchemaName: contract.EditSchemaName,
		Schema:     contract.EditSchema(),
		Strict:     false,
		MaxTokens:  e.maxTokens,
		System:     system,
		History:    in.History,
		User:       user,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var edit SectionEdit
	if err := decodeCompletion(raw, &edit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(edit.TargetSectionID) == "" || len(edit.Blocks) == 0 {
		return nil, errors.ErrInvalidEditResponse
	}

	logger.Info(ctx, "section edit ready", "section_id", edit.TargetSectionID, "blocks", len(edit.Blocks))
	if err := e.memory.Append(ctx, key, entity.RoleAssistant, EditSummary(edit.TargetSectionID, len(edit.Blocks))); err != nil {
		return nil, err
	}
	return &edit, nil
}

// syncedOutline 客户端同步过文档结构时，拼成提示词附加段
func (e *SectionEditor) syncedOutline(ctx context.Context, key entity.MemoryKey) string {
	if e.states == nil {
		return ""
	}
	state, err := e.states.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, errors.ErrDocumentNotFound) {
			logger.Warn(ctx, "failed to load document state", "error", err.Error())
		}
		return ""
	}
	return FormatOutline(state)
}

// FormatOutline 文档结构提示词片段；无结构时为空
func FormatOutline(state *entity.DocumentState) string {
	if state == nil || len(state.Outline) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nCurrent document outline (block_id | type | summary):")
	for _, entry := range state.Outline {
		b.WriteString("\n- ")
		b.WriteString(entry.BlockID)
		b.WriteString(" | ")
		b.WriteString(entry.Type)
		b.WriteString(" | ")
		b.WriteString(entry.Summary)
	}
	return b.String()
}
