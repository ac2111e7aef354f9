package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/pkg/metrics"
)

// PacedProvider 在补全调用前经过全局令牌桶，平滑对提供商的请求速率
type PacedProvider struct {
	next    workflowport.CompletionProvider
	limiter *rate.Limiter
}

var _ workflowport.CompletionProvider = (*PacedProvider)(nil)

// NewPacedProvider requestsPerMinute <= 0 时不限速，直接返回 next
func NewPacedProvider(next workflowport.CompletionProvider, requestsPerMinute, burst int) workflowport.CompletionProvider {
	if requestsPerMinute <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &PacedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

func (p *PacedProvider) Complete(ctx context.Context, req *workflowport.CompletionRequest) (string, error) {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	metrics.LLMPacingWait.Observe(time.Since(start).Seconds())
	return p.next.Complete(ctx, req)
}
