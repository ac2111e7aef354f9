package document

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"docs-agent-api/internal/domain/entity"
	llmctx "docs-agent-api/internal/domain/service"
	"docs-agent-api/internal/workflow/contract"
	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/internal/workflow/prompt"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/metrics"
	"docs-agent-api/pkg/tracer"
)

const (
	minOutlineSections = 8
	maxOutlineSections = 12
)

// Planner 大纲规划
type Planner struct {
	gateway   *Gateway
	prompts   *prompt.Registry
	maxTokens int
}

func NewPlanner(gateway *Gateway, prompts *prompt.Registry, maxTokens int) *Planner {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Planner{gateway: gateway, prompts: prompts, maxTokens: maxTokens}
}

// Plan 生成文档大纲；章节为空时返回 ErrPlanningFailed
func (p *Planner) Plan(ctx context.Context, userPrompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn) (*entity.Outline, error) {
	ctx, span := tracer.Start(ctx, "document.Planner.Plan")
	defer span.End()
	span.SetAttributes(attribute.String("document.type", string(docType)))

	system, user, err := p.prompts.Render(ctx, prompt.PromptOutlineV1, map[string]any{
		"doc_type": strings.ToUpper(string(docType)),
		"prompt":   userPrompt,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "render outline prompt")
	}

	raw, err := p.gateway.Request(llmctx.WithWorkflow(ctx, llmctx.WorkflowOutline), &workflowport.CompletionRequest{
		Workflow:   llmctx.WorkflowOutline,
		SchemaName: contract.OutlineSchemaName,
		Schema:     contract.OutlineSchema(),
		Strict:     true,
		MaxTokens:  p.maxTokens,
		System:     system,
		History:    history,
		User:       user,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var outline entity.Outline
	if err := decodeCompletion(raw, &outline); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	if len(outline.Sections) == 0 {
		return nil, errors.ErrPlanningFailed.WithDetail("outline has no sections")
	}

	warnOutline(ctx, &outline)
	span.SetAttributes(attribute.Int("outline.sections", len(outline.Sections)))
	logger.Info(ctx, "outline ready", "title", outline.Title, "sections", len(outline.Sections))
	return &outline, nil
}

// warnOutline 章节数越界与章节 ID 重复只记录告警
func warnOutline(ctx context.Context, outline *entity.Outline) {
	n := len(outline.Sections)
	if n < minOutlineSections || n > maxOutlineSections {
		metrics.ValidationWarningsTotal.WithLabelValues("outline").Inc()
		logger.Warn(ctx, "outline section count out of range", "sections", n, "min", minOutlineSections, "max", maxOutlineSections)
	}

	seen := make(map[string]struct{}, n)
	for _, s := range outline.Sections {
		if _, dup := seen[s.SectionID]; dup {
			metrics.ValidationWarningsTotal.WithLabelValues("outline").Inc()
			logger.Warn(ctx, "outline has duplicate section id", "section_id", s.SectionID)
			continue
		}
		seen[s.SectionID] = struct{}{}
	}
}
