package document

import (
	"context"
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

// PatchPrompt 改写选中文本的指令
func PatchPrompt(originalText, instruction string) string {
	return `Modify the following text: "` + originalText + `" based on this instruction: "` + instruction + `"`
}

// InsertPrompt 在上下文附近插入内容的指令
func InsertPrompt(context, instruction string) string {
	return `Insert new content near: "` + context + `" following this instruction: "` + instruction + `"`
}

// InlineEditInput 行内编辑请求；Text 在 patch 时为原文，在 insert 时为上下文
type InlineEditInput struct {
	Operation     entity.OperationKind
	Text          string
	Instruction   string
	TargetBlockID string
	DocType       entity.DocumentFormat
	DocumentID    string
	UserID        string
}

// InlineEditor 选区级别的 patch/insert
type InlineEditor struct {
	gateway   *Gateway
	prompts   *prompt.Registry
	states    repository.DocumentStateRepository
	maxTokens int
}

func NewInlineEditor(gateway *Gateway, prompts *prompt.Registry, states repository.DocumentStateRepository, maxTokens int) *InlineEditor {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &InlineEditor{gateway: gateway, prompts: prompts, states: states, maxTokens: maxTokens}
}

func (e *InlineEditor) Edit(ctx context.Context, in *InlineEditInput) (*entity.DocumentResponse, error) {
	ctx, span := tracer.Start(ctx, "document.InlineEditor.Edit")
	defer span.End()
	span.SetAttributes(attribute.String("edit.operation", string(in.Operation)))

	var userPrompt string
	switch in.Operation {
	case entity.OperationPatch:
		userPrompt = PatchPrompt(in.Text, in.Instruction)
	case entity.OperationInsert:
		userPrompt = InsertPrompt(in.Text, in.Instruction)
	default:
		return nil, errors.ErrInvalidParam.WithDetail("operation must be patch or insert")
	}

	format := in.DocType
	if format == "" {
		format = entity.FormatGeneral
	}
	outline := ""
	if e.states != nil && strings.TrimSpace(in.DocumentID) != "" {
		if state, err := e.states.Get(ctx, entity.MemoryKey{DocumentID: in.DocumentID, UserID: in.UserID}); err == nil {
			outline = FormatOutline(state)
		}
	}

	system, user, err := e.prompts.Render(ctx, prompt.PromptInlineEditV1, map[string]any{
		"format":          string(format),
		"operation":       string(in.Operation),
		"target_block_id": in.TargetBlockID,
		"doc_outline":     outline,
		"prompt":          userPrompt,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "render inline edit prompt")
	}

	raw, err := e.gateway.Request(llmctx.WithWorkflow(ctx, llmctx.WorkflowInlineEdit), &workflowport.CompletionRequest{
		Workflow:   llmctx.WorkflowInlineEdit,
		SchemaName: contract.ResponseSchemaName,
		Schema:     contract.ResponseSchema(),
		Strict:     true,
		MaxTokens:  e.maxTokens,
		System:     system,
		User:       user,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	resp, err := decodeResponse(ctx, raw, "inline_edit")
	if err != nil {
		return nil, err
	}
	if resp.Operation.Kind() != in.Operation {
		logger.Warn(ctx, "inline edit returned a different operation", "requested", in.Operation, "returned", resp.Operation.Kind())
	}
	return resp, nil
}
