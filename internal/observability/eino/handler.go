// Package eino 注册 Eino 全局回调：为每次模型调用记录追踪、指标与用量流水
package eino

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docs-agent-api/internal/domain/service"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/metrics"
)

type startTimeKey struct{}

func newChatModelCallbackHandler(recorder service.LLMUsageRecorder) *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", service.WorkflowFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if owner, ok := service.UsageOwnerFromContext(ctx); ok && owner.DocumentID != "" {
				attrs = append(attrs, attribute.String("document.id", owner.DocumentID))
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.node_name", info.Name))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			provider := service.ProviderFromContext(ctx)
			modelName := modelNameFromOutput(output)
			elapsed := elapsed(ctx)

			metrics.LLMCallTotal.WithLabelValues(provider, modelName, "success").Inc()
			if elapsed > 0 {
				metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(elapsed.Seconds())
			}

			span := trace.SpanFromContext(ctx)
			if output != nil && output.TokenUsage != nil {
				usage := output.TokenUsage
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(usage.PromptTokens))
				metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(usage.CompletionTokens))
				span.SetAttributes(
					attribute.Int("llm.prompt_tokens", usage.PromptTokens),
					attribute.Int("llm.completion_tokens", usage.CompletionTokens),
				)
				recordUsage(ctx, recorder, modelName, usage.PromptTokens, usage.CompletionTokens, elapsed)
			}
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			provider := service.ProviderFromContext(ctx)

			metrics.LLMCallTotal.WithLabelValues(provider, "", "error").Inc()
			if d := elapsed(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(provider, "").Observe(d.Seconds())
			}

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

// recordUsage 只记录归属到文档的调用；失败只告警
func recordUsage(ctx context.Context, recorder service.LLMUsageRecorder, modelName string, promptTokens, completionTokens int, d time.Duration) {
	if recorder == nil {
		return
	}
	owner, ok := service.UsageOwnerFromContext(ctx)
	if !ok || owner.DocumentID == "" {
		return
	}

	err := recorder.Record(ctx, service.LLMUsageInput{
		Owner:            owner,
		Workflow:         service.WorkflowFromContext(ctx),
		Provider:         service.ProviderFromContext(ctx),
		Model:            modelName,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		DurationMs:       int(d.Milliseconds()),
	})
	if err != nil {
		logger.Warn(ctx, "failed to record llm usage", "error", err.Error())
	}
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start)
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
