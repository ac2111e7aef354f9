// Package service 定义跨层共享的领域服务契约
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyOwner    llmCtxKey = "llm_owner"
)

// 补全调用来源
const (
	WorkflowOutline     = "outline"
	WorkflowSection     = "section"
	WorkflowSingleShot  = "single_shot"
	WorkflowSectionEdit = "section_edit"
	WorkflowInlineEdit  = "inline_edit"
)

// UsageOwner 调用归属的文档与用户，用于用量记账
type UsageOwner struct {
	DocumentID string
	UserID     string
}

func WithWorkflow(ctx context.Context, workflow string) context.Context {
	w := strings.TrimSpace(workflow)
	if ctx == nil || w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	p := strings.TrimSpace(provider)
	if ctx == nil || p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

// WithUsageOwner 标记后续 LLM 调用的归属；空文档 ID 不记录
func WithUsageOwner(ctx context.Context, documentID, userID string) context.Context {
	if ctx == nil || strings.TrimSpace(documentID) == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyOwner, UsageOwner{DocumentID: documentID, UserID: userID})
}

func UsageOwnerFromContext(ctx context.Context) (UsageOwner, bool) {
	if ctx == nil {
		return UsageOwner{}, false
	}
	o, ok := ctx.Value(llmCtxKeyOwner).(UsageOwner)
	return o, ok
}

func WorkflowFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return stringFromContext(ctx, llmCtxKeyProvider)
}

func stringFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
