// Package chain 基于 Eino compose 编排的 LLM 调用链
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"docs-agent-api/internal/domain/entity"
	llmctx "docs-agent-api/internal/domain/service"
	workflowport "docs-agent-api/internal/workflow/port"
)

// CompletionChain 结构化补全链：组装消息、调用模型、取出文本
type CompletionChain struct {
	factory  workflowport.ChatModelFactory
	provider string

	chainOnce sync.Once
	chain     compose.Runnable[*workflowport.CompletionRequest, string]
	chainErr  error
}

var _ workflowport.CompletionProvider = (*CompletionChain)(nil)

// NewCompletionChain provider 为空时使用工厂的默认提供商
func NewCompletionChain(factory workflowport.ChatModelFactory, provider string) *CompletionChain {
	return &CompletionChain{factory: factory, provider: strings.TrimSpace(provider)}
}

func (c *CompletionChain) Complete(ctx context.Context, req *workflowport.CompletionRequest) (string, error) {
	if c == nil || c.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	if req == nil {
		return "", fmt.Errorf("completion request is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return "", err
	}
	return chain.Invoke(ctx, req)
}

type completionState struct {
	In       *workflowport.CompletionRequest
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *CompletionChain) getChain() (compose.Runnable[*workflowport.CompletionRequest, string], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *CompletionChain) buildChain(ctx context.Context) (compose.Runnable[*workflowport.CompletionRequest, string], error) {
	chain := compose.NewChain[*workflowport.CompletionRequest, string]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *workflowport.CompletionRequest) (*completionState, error) {
			return &completionState{In: in, Messages: BuildMessages(in)}, nil
		}),
		compose.WithNodeName("completion.messages"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *completionState) (*completionState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}

			ctx = llmctx.WithWorkflowProvider(ctx, st.In.Workflow, c.provider)
			chatModel, err := c.factory.Get(ctx, c.provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildModelOptions(st.In)...)
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("completion.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *completionState) (string, error) {
			if st == nil || st.OutMsg == nil {
				return "", fmt.Errorf("state is nil")
			}
			return st.OutMsg.Content, nil
		}),
		compose.WithNodeName("completion.finalize"),
	)

	return chain.Compile(ctx)
}

// BuildMessages 按 system、历史、user 的顺序组装消息
func BuildMessages(in *workflowport.CompletionRequest) []*schema.Message {
	if in == nil {
		return nil
	}
	msgs := make([]*schema.Message, 0, len(in.History)+2)
	msgs = append(msgs, schema.SystemMessage(in.System))
	for _, turn := range in.History {
		if turn == nil {
			continue
		}
		msgs = append(msgs, turnMessage(turn))
	}
	msgs = append(msgs, schema.UserMessage(in.User))
	return msgs
}

func turnMessage(turn *entity.ConversationTurn) *schema.Message {
	switch turn.Role {
	case entity.RoleAssistant:
		return schema.AssistantMessage(turn.Content, nil)
	case entity.RoleSystem:
		return schema.SystemMessage(turn.Content)
	default:
		return schema.UserMessage(turn.Content)
	}
}

// buildModelOptions 每次调用都附带 response_format，提供商拒绝时直接返回错误
func buildModelOptions(in *workflowport.CompletionRequest) []model.Option {
	opts := make([]model.Option, 0, 2)
	if in == nil {
		return opts
	}

	if in.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(in.MaxTokens))
	}

	if in.Schema != nil {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   in.SchemaName,
					"strict": in.Strict,
					"schema": in.Schema,
				},
			},
		}))
	}
	return opts
}
