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

// SectionGenerator 单章节内容生成
type SectionGenerator struct {
	gateway   *Gateway
	prompts   *prompt.Registry
	maxTokens int
}

func NewSectionGenerator(gateway *Gateway, prompts *prompt.Registry, maxTokens int) *SectionGenerator {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &SectionGenerator{gateway: gateway, prompts: prompts, maxTokens: maxTokens}
}

type sectionCompletion struct {
	SectionID string           `json:"section_id"`
	Blocks    entity.BlockList `json:"blocks"`
}

// Generate 生成一个章节；不带会话历史，只依赖前文摘要
func (g *SectionGenerator) Generate(ctx context.Context, section entity.SectionDescriptor, doc entity.DocContext, priorSummary string) (*entity.SectionResult, error) {
	ctx, span := tracer.Start(ctx, "document.SectionGenerator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("section.id", section.SectionID),
		attribute.String("document.format", string(doc.Format)),
	)

	if strings.TrimSpace(priorSummary) == "" {
		priorSummary = FirstSectionSentinel
	}

	system, user, err := g.prompts.Render(ctx, prompt.PromptSectionV1, map[string]any{
		"format":              strings.ToUpper(string(doc.Format)),
		"title":               doc.Title,
		"style":               StyleFor(doc.Format),
		"section_id":          section.SectionID,
		"prior_summary":       priorSummary,
		"section_title":       section.Title,
		"section_type":        string(section.Type),
		"section_description": section.Description,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "render section prompt")
	}

	raw, err := g.gateway.Request(llmctx.WithWorkflow(ctx, llmctx.WorkflowSection), &workflowport.CompletionRequest{
		Workflow:   llmctx.WorkflowSection,
		SchemaName: contract.SectionSchemaName,
		Schema:     contract.SectionSchema(),
		Strict:     false,
		MaxTokens:  g.maxTokens,
		System:     system,
		User:       user,
	})
	if err != nil {
		metrics.SectionsGenerated.WithLabelValues(string(doc.Format), "error").Inc()
		tracer.RecordError(span, err)
		return nil, err
	}

	var out sectionCompletion
	if err := decodeCompletion(raw, &out); err != nil {
		metrics.SectionsGenerated.WithLabelValues(string(doc.Format), "error").Inc()
		tracer.RecordError(span, err)
		return nil, err
	}

	blocks := out.Blocks
	if blocks == nil {
		blocks = entity.BlockList{}
	}
	if len(blocks) == 0 {
		metrics.EmptySectionsTotal.Inc()
		logger.Warn(ctx, "section generated with no blocks", "section_id", section.SectionID, "title", section.Title)
	}
	if errs := contract.ValidateBlocks(blocks, "blocks"); len(errs) > 0 {
		metrics.ValidationWarningsTotal.WithLabelValues("section").Add(float64(len(errs)))
		logger.Warn(ctx, "section blocks failed validation", "section_id", section.SectionID, "errors", errs)
	}

	metrics.SectionsGenerated.WithLabelValues(string(doc.Format), "success").Inc()
	metrics.SectionBlockCount.Observe(float64(len(blocks)))
	span.SetAttributes(attribute.Int("section.blocks", len(blocks)))

	return &entity.SectionResult{
		SectionID: section.SectionID,
		Title:     section.Title,
		Blocks:    blocks,
	}, nil
}
