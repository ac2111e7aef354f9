// Package document 实现文档生成编排：大纲规划、章节生成、分章节任务、单次生成与编辑
package document

import (
	"context"
	"encoding/json"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	wfnode "docs-agent-api/internal/workflow/node"
	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/tracer"
)

// Gateway 结构化补全网关：一次调用，一段 JSON，不重试
type Gateway struct {
	provider workflowport.CompletionProvider
}

func NewGateway(provider workflowport.CompletionProvider) *Gateway {
	return &Gateway{provider: provider}
}

// Request 发起补全并返回 JSON 对象原文
// 提供商失败返回 ErrProviderError；空输出或非法 JSON 返回 ErrMalformedCompletion
func (g *Gateway) Request(ctx context.Context, req *workflowport.CompletionRequest) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "document.Gateway.Request")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.schema", req.SchemaName),
		attribute.Bool("llm.strict", req.Strict),
		attribute.Int("llm.max_tokens", req.MaxTokens),
		attribute.Int("llm.history_turns", len(req.History)),
	)

	content, err := g.provider.Complete(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		kind := wfnode.ProviderErrorKind(err)
		logger.Error(ctx, "completion provider failed", err, "schema", req.SchemaName, "kind", kind)
		return nil, errors.ErrProviderError.WithDetail(kind).WithError(err)
	}

	raw := wfnode.ExtractJSONObject(content)
	if strings.TrimSpace(raw) == "" {
		span.SetAttributes(attribute.Bool("llm.empty", true))
		return nil, errors.ErrMalformedCompletion.WithDetail("empty completion")
	}
	if !json.Valid([]byte(raw)) {
		logger.Warn(ctx, "completion is not valid json",
			"schema", req.SchemaName,
			"preview", wfnode.TruncateByRunes(content, 200),
		)
		return nil, errors.ErrMalformedCompletion.WithDetail("completion is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// decodeCompletion 将补全结果解码到目标结构，失败视为格式错误
func decodeCompletion(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.ErrMalformedCompletion.WithDetail(err.Error()).WithError(err)
	}
	return nil
}
