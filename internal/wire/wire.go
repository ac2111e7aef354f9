//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"docs-agent-api/internal/application/document"
	"docs-agent-api/internal/config"
	"docs-agent-api/internal/infrastructure/llm"
	"docs-agent-api/internal/interfaces/http/router"
	"docs-agent-api/internal/workflow/prompt"
)

// InitializeApp 初始化 API 服务
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		DataSet,
		MessagingSet,
		UsageSet,
		DocumentSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeUsageWorker 初始化用量落库 worker
func InitializeUsageWorker(ctx context.Context, cfg *config.Config) (*UsageWorker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideUsageRepository,
		ProvideUsageConsumer,
		ProvideUsageSink,
		wire.Struct(new(UsageWorker), "*"),
	)
	return nil, nil, nil
}

// DataSet 存储后端
var DataSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideRedisClient,
	ProvideCache,
	ProvideJobRepository,
	ProvideConversationMemory,
	ProvideDocumentStateRepository,
)

// MessagingSet 事件流
var MessagingSet = wire.NewSet(
	ProvideProducer,
	ProvideEventPublisher,
)

// UsageSet 用量流水
var UsageSet = wire.NewSet(
	ProvideUsageRepository,
	ProvideUsageRecorder,
	ProvideUsageHandler,
)

// DocumentSet 文档生成用例
var DocumentSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideCompletionProvider,
	prompt.NewRegistry,
	document.NewGateway,
	ProvidePlanner,
	ProvideSectionGenerator,
	ProvideSingleShotGenerator,
	ProvideSectionEditor,
	ProvideInlineEditor,
	ProvideSummarizer,
	ProvideOrchestrator,
	document.NewService,
)

// RouterSet 路由与处理器
var RouterSet = wire.NewSet(
	ProvideHealthChecks,
	ProvideHealthHandler,
	ProvideDocumentHandler,
	ProvideConversationHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideRateLimiter,
	ProvideRouter,
)
