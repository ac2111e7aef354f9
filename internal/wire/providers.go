package wire

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/application/document"
	"docs-agent-api/internal/application/usage"
	"docs-agent-api/internal/config"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/internal/domain/service"
	"docs-agent-api/internal/infrastructure/llm"
	"docs-agent-api/internal/infrastructure/messaging"
	"docs-agent-api/internal/infrastructure/persistence/memory"
	"docs-agent-api/internal/infrastructure/persistence/postgres"
	"docs-agent-api/internal/infrastructure/persistence/redis"
	"docs-agent-api/internal/interfaces/http/handler"
	"docs-agent-api/internal/interfaces/http/middleware"
	"docs-agent-api/internal/interfaces/http/router"
	"docs-agent-api/internal/workflow/chain"
	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/internal/workflow/prompt"
	"docs-agent-api/pkg/logger"
)

// 存储后端取值
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// App API 服务依赖容器
type App struct {
	Router   *router.Router
	Recorder service.LLMUsageRecorder
}

// Engine 返回 HTTP 处理器
func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// UsageWorker 用量落库 worker
type UsageWorker struct {
	Consumer *messaging.Consumer
	Sink     *usage.Sink
}

// ProvidePostgresClient 未启用时返回 nil，不建立连接
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.PostgresRequired() {
		return nil, func() {}, nil
	}
	client, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Postgres.AutoMigrate {
		if err := client.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.RedisRequired() {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideJobRepository 按 generation.job_store 选择任务注册表
func ProvideJobRepository(cfg *config.Config, redisClient *redis.Client) (repository.JobRepository, func(), error) {
	switch cfg.Generation.JobStore {
	case BackendRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("job_store=redis requires a redis connection")
		}
		return redis.NewJobStore(redisClient, cfg.Generation.JobTTL), func() {}, nil
	case "", BackendMemory:
		store := memory.NewJobStore(cfg.Generation.JobTTL, nil)
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown job_store %q", cfg.Generation.JobStore)
	}
}

// ProvideConversationMemory 按 generation.memory_store 选择会话记忆
func ProvideConversationMemory(cfg *config.Config, pg *postgres.Client) (repository.ConversationMemory, error) {
	switch cfg.Generation.MemoryStore {
	case BackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("memory_store=postgres requires a postgres connection")
		}
		return postgres.NewConversationMemory(postgres.NewConversationTurnRepository(pg)), nil
	case "", BackendMemory:
		return memory.NewConversationStore(), nil
	default:
		return nil, fmt.Errorf("unknown memory_store %q", cfg.Generation.MemoryStore)
	}
}

// ProvideCache Redis 可用时提供读穿缓存
func ProvideCache(redisClient *redis.Client) *redis.Cache {
	if redisClient == nil {
		return nil
	}
	return redis.NewCache(redisClient)
}

// ProvideDocumentStateRepository 有 Redis 时带 TTL 存储，否则进程内
func ProvideDocumentStateRepository(cfg *config.Config, cache *redis.Cache) repository.DocumentStateRepository {
	if cache == nil {
		return memory.NewDocumentStateStore()
	}
	return redis.NewDocumentStateStore(cache, cfg.Generation.DocumentStateTTL)
}

// ProvideProducer 事件流启用时提供生产者
func ProvideProducer(cfg *config.Config, redisClient *redis.Client) *messaging.Producer {
	if !cfg.Messaging.RedisStream.Enabled || redisClient == nil {
		return nil
	}
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideEventPublisher 未启用事件流时丢弃事件
func ProvideEventPublisher(producer *messaging.Producer) service.GenerationEventPublisher {
	if producer == nil {
		return service.NopEventPublisher{}
	}
	return producer
}

// ProvideUsageRepository 用量流水仓储，未启用 PostgreSQL 时为 nil
func ProvideUsageRepository(pg *postgres.Client) repository.LLMUsageEventRepository {
	if pg == nil {
		return nil
	}
	return postgres.NewLLMUsageEventRepository(pg)
}

// ProvideUsageRecorder 事件流启用时异步落库，否则直接写库；都不可用时不记录
func ProvideUsageRecorder(producer *messaging.Producer, repo repository.LLMUsageEventRepository) service.LLMUsageRecorder {
	switch {
	case producer != nil:
		return usage.NewStreamRecorder(producer)
	case repo != nil:
		return usage.NewRecorder(repo)
	default:
		return nil
	}
}

// ProvideUsageHandler 没有用量仓储时不注册用量接口
func ProvideUsageHandler(repo repository.LLMUsageEventRepository, cache *redis.Cache) *handler.UsageHandler {
	if repo == nil {
		return nil
	}
	var c usage.Cache
	if cache != nil {
		c = cache
	}
	return handler.NewUsageHandler(usage.NewReporter(repo, c, 30*time.Second))
}

// ProvideCompletionProvider 补全链外包一层全局令牌桶
func ProvideCompletionProvider(cfg *config.Config, factory *llm.EinoFactory) workflowport.CompletionProvider {
	return llm.NewPacedProvider(chain.NewCompletionChain(factory, cfg.LLM.DefaultProvider), cfg.LLM.RequestsPerMinute, cfg.LLM.Burst)
}

func ProvidePlanner(cfg *config.Config, gateway *document.Gateway, prompts *prompt.Registry) *document.Planner {
	return document.NewPlanner(gateway, prompts, cfg.Generation.OutlineMaxTokens)
}

func ProvideSectionGenerator(cfg *config.Config, gateway *document.Gateway, prompts *prompt.Registry) *document.SectionGenerator {
	return document.NewSectionGenerator(gateway, prompts, cfg.Generation.SectionMaxTokens)
}

func ProvideSingleShotGenerator(cfg *config.Config, gateway *document.Gateway, prompts *prompt.Registry) *document.SingleShotGenerator {
	return document.NewSingleShotGenerator(gateway, prompts, cfg.Generation.SectionMaxTokens)
}

func ProvideSectionEditor(cfg *config.Config, gateway *document.Gateway, prompts *prompt.Registry, mem repository.ConversationMemory, states repository.DocumentStateRepository) *document.SectionEditor {
	return document.NewSectionEditor(gateway, prompts, mem, states, cfg.Generation.SectionMaxTokens)
}

func ProvideInlineEditor(cfg *config.Config, gateway *document.Gateway, prompts *prompt.Registry, states repository.DocumentStateRepository) *document.InlineEditor {
	return document.NewInlineEditor(gateway, prompts, states, cfg.Generation.SectionMaxTokens)
}

func ProvideSummarizer(cfg *config.Config) *document.Summarizer {
	return document.NewSummarizer(cfg.Generation.SummarySnippetRunes)
}

func ProvideOrchestrator(
	cfg *config.Config,
	planner *document.Planner,
	sections *document.SectionGenerator,
	jobs repository.JobRepository,
	summarizer *document.Summarizer,
	events service.GenerationEventPublisher,
) *document.Orchestrator {
	return document.NewOrchestrator(planner, sections, jobs, summarizer, document.OrchestratorConfig{
		PostOutlineDelay:  cfg.Generation.PostOutlineDelay,
		InterSectionDelay: cfg.Generation.InterSectionDelay,
		SerializePulls:    cfg.Generation.SerializePulls,
	}, document.WithEventPublisher(events))
}

// ProvideHealthChecks 只登记已启用的依赖
func ProvideHealthChecks(pg *postgres.Client, redisClient *redis.Client) map[string]handler.HealthChecker {
	checks := make(map[string]handler.HealthChecker, 2)
	if pg != nil {
		checks["postgres"] = pg
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	return checks
}

func ProvideHealthHandler(cfg *config.Config, checks map[string]handler.HealthChecker) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, checks)
}

func ProvideDocumentHandler(svc *document.Service) *handler.DocumentHandler {
	return handler.NewDocumentHandler(svc)
}

func ProvideConversationHandler(svc *document.Service) *handler.ConversationHandler {
	return handler.NewConversationHandler(svc)
}

// ProvideRateLimiter 限流未启用时返回 nil 接口
func ProvideRateLimiter(cfg *config.Config, redisClient *redis.Client) middleware.RateLimiter {
	if !cfg.Security.RateLimit.Enabled || redisClient == nil {
		return nil
	}
	return redis.NewRateLimiter(redisClient)
}

func ProvideRouter(cfg *config.Config, handlers *router.Handlers, limiter middleware.RateLimiter) *router.Router {
	return router.New(cfg, handlers, limiter, redis.BuildRateLimitKey)
}

// ProvideUsageConsumer 用量流消费者，consumer 名取主机名加进程号
func ProvideUsageConsumer(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*messaging.Consumer, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("usage worker requires messaging.redis_stream.enabled")
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "usage-worker"
	}
	name := fmt.Sprintf("%s-%d", host, os.Getpid())
	logger.Info(ctx, "usage consumer configured", "consumer", name)
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamLLMUsage,
		Group:        messaging.ConsumerGroupUsageWriter,
		ConsumerName: name,
		BlockTimeout: cfg.Messaging.RedisStream.BlockTimeout,
		RetryLimit:   cfg.Messaging.RedisStream.RetryLimit,
	}), nil
}

// ProvideUsageSink 用量 worker 必须有 PostgreSQL
func ProvideUsageSink(repo repository.LLMUsageEventRepository) (*usage.Sink, error) {
	if repo == nil {
		return nil, fmt.Errorf("usage worker requires database.postgres.enabled")
	}
	return usage.NewSink(repo), nil
}
