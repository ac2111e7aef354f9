package document

import (
	"context"
	"time"

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

// ModeSingleShot 单次生成的指标标签
const ModeSingleShot = "single_shot"

// CreatePrompt 单次生成的用户指令包装
func CreatePrompt(userInput string) string {
	return "Draft a new document based on: " + userInput
}

// SingleShotGenerator 短文档一次生成
type SingleShotGenerator struct {
	gateway   *Gateway
	prompts   *prompt.Registry
	maxTokens int
}

func NewSingleShotGenerator(gateway *Gateway, prompts *prompt.Registry, maxTokens int) *SingleShotGenerator {
	if maxTokens <= 0 {
		maxTokens = 16384
	}
	return &SingleShotGenerator{gateway: gateway, prompts: prompts, maxTokens: maxTokens}
}

// Generate 按文档类型特化 Schema 后一次生成；校验问题只告警
func (g *SingleShotGenerator) Generate(ctx context.Context, userPrompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn) (*entity.DocumentResponse, error) {
	ctx, span := tracer.Start(ctx, "document.SingleShotGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("document.type", string(docType)))
	start := time.Now()

	resp, err := g.generate(ctx, userPrompt, docType, history)
	metrics.DocumentGenerationDuration.WithLabelValues(ModeSingleShot).Observe(time.Since(start).Seconds())
	if err != nil {
		tracer.RecordError(span, err)
		metrics.DocumentGenerationTotal.WithLabelValues(ModeSingleShot, string(docType), "error").Inc()
		return nil, err
	}
	metrics.DocumentGenerationTotal.WithLabelValues(ModeSingleShot, string(docType), "success").Inc()
	return resp, nil
}

func (g *SingleShotGenerator) generate(ctx context.Context, userPrompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn) (*entity.DocumentResponse, error) {
	system, user, err := g.prompts.Render(ctx, prompt.PromptSingleShotV1, map[string]any{
		"doc_type": string(docType),
		"prompt":   CreatePrompt(userPrompt),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "render single-shot prompt")
	}

	raw, err := g.gateway.Request(llmctx.WithWorkflow(ctx, llmctx.WorkflowSingleShot), &workflowport.CompletionRequest{
		Workflow:   llmctx.WorkflowSingleShot,
		SchemaName: contract.ResponseSchemaName,
		Schema:     contract.Specialize(contract.ResponseSchema(), docType),
		Strict:     true,
		MaxTokens:  g.maxTokens,
		System:     system,
		History:    history,
		User:       user,
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse(ctx, raw, "single_shot")
}

// decodeResponse 解码操作响应；校验问题记录为告警，无可用载荷视为格式错误
func decodeResponse(ctx context.Context, raw []byte, source string) (*entity.DocumentResponse, error) {
	var wire entity.ResponseWire
	if err := decodeCompletion(raw, &wire); err != nil {
		return nil, err
	}

	if errs := contract.Validate(&wire); len(errs) > 0 {
		metrics.ValidationWarningsTotal.WithLabelValues(source).Add(float64(len(errs)))
		logger.Warn(ctx, "llm response validation errors", "source", source, "errors", errs)
	}

	op, err := wire.ToOperation()
	if err != nil {
		return nil, errors.ErrMalformedCompletion.WithDetail(err.Error())
	}
	return &entity.DocumentResponse{Operation: op}, nil
}
