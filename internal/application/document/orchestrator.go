package document

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/internal/domain/service"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
	"docs-agent-api/pkg/metrics"
	"docs-agent-api/pkg/tracer"
)

// 响应中的 mode 字段
const (
	ModeIterative      = "iterative"
	ModeIterativeStart = "iterative_start"
)

// BatchResult 批量模式一次性返回全部章节
type BatchResult struct {
	Mode      string                 `json:"mode"`
	Operation entity.OperationKind   `json:"operation"`
	Document  entity.DocumentMeta    `json:"document"`
	Sections  []entity.SectionResult `json:"sections"`
}

// StartResult 分章节模式的任务清单
type StartResult struct {
	Mode         string                        `json:"mode"`
	JobID        string                        `json:"job_id"`
	Document     entity.DocumentMeta           `json:"document"`
	SectionsMeta []entity.SectionManifestEntry `json:"sections_meta"`
}

// SectionPullResult 单次拉取的章节
type SectionPullResult struct {
	SectionID string           `json:"section_id"`
	Title     string           `json:"title"`
	Index     int              `json:"index"`
	Total     int              `json:"total"`
	Blocks    entity.BlockList `json:"blocks"`

	Owner entity.JobOwner `json:"-"`
}

// OrchestratorConfig 编排参数
type OrchestratorConfig struct {
	PostOutlineDelay  time.Duration
	InterSectionDelay time.Duration
	// SerializePulls 同一任务的拉取串行执行，避免摘要丢失
	SerializePulls bool
}

// Orchestrator 长文档分阶段生成
type Orchestrator struct {
	planner    *Planner
	sections   *SectionGenerator
	jobs       repository.JobRepository
	summarizer *Summarizer
	cfg        OrchestratorConfig

	pacer  Pacer
	events service.GenerationEventPublisher
	newID  func() string
	now    func() time.Time

	pullLocks *keyedMutex
}

// OrchestratorOption 可选依赖
type OrchestratorOption func(*Orchestrator)

func WithPacer(p Pacer) OrchestratorOption {
	return func(o *Orchestrator) { o.pacer = p }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = newID }
}

func WithEventPublisher(p service.GenerationEventPublisher) OrchestratorOption {
	return func(o *Orchestrator) { o.events = p }
}

func NewOrchestrator(
	planner *Planner,
	sections *SectionGenerator,
	jobs repository.JobRepository,
	summarizer *Summarizer,
	cfg OrchestratorConfig,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		planner:    planner,
		sections:   sections,
		jobs:       jobs,
		summarizer: summarizer,
		cfg:        cfg,
		pacer:      SleepPacer{},
		events:     service.NopEventPublisher{},
		newID:      uuid.NewString,
		now:        time.Now,
		pullLocks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch 规划后逐章生成，任一步失败即中止，不返回部分结果
func (o *Orchestrator) RunBatch(ctx context.Context, prompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn) (*BatchResult, error) {
	ctx, span := tracer.Start(ctx, "document.Orchestrator.RunBatch")
	defer span.End()
	start := time.Now()

	result, err := o.runBatch(ctx, prompt, docType, history)
	metrics.DocumentGenerationDuration.WithLabelValues(ModeIterative).Observe(time.Since(start).Seconds())
	if err != nil {
		tracer.RecordError(span, err)
		metrics.DocumentGenerationTotal.WithLabelValues(ModeIterative, string(docType), "error").Inc()
		return nil, err
	}
	metrics.DocumentGenerationTotal.WithLabelValues(ModeIterative, string(docType), "success").Inc()
	span.SetAttributes(attribute.Int("document.sections", len(result.Sections)))
	return result, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, prompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn) (*BatchResult, error) {
	outline, err := o.planner.Plan(ctx, prompt, docType, history)
	if err != nil {
		return nil, err
	}
	if err := o.pacer.Wait(ctx, o.cfg.PostOutlineDelay); err != nil {
		return nil, err
	}

	doc := entity.DocContext{Title: outline.Title, Format: outline.Format}
	total := len(outline.Sections)
	results := make([]entity.SectionResult, 0, total)
	summary := ""

	for i, section := range outline.Sections {
		logger.Info(ctx, "generating section", "index", i+1, "total", total, "title", section.Title)

		res, err := o.sections.Generate(ctx, section, doc, summary)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.SectionID, err)
		}
		results = append(results, *res)
		summary = o.summarizer.Build(results)

		if i < total-1 {
			if err := o.pacer.Wait(ctx, o.cfg.InterSectionDelay); err != nil {
				return nil, err
			}
		}
	}

	return &BatchResult{
		Mode:      ModeIterative,
		Operation: entity.OperationCreate,
		Document:  outline.Meta(),
		Sections:  results,
	}, nil
}

// Start 规划并注册任务，章节由客户端逐个拉取
func (o *Orchestrator) Start(ctx context.Context, prompt string, docType entity.DocumentFormat, history []*entity.ConversationTurn, owner entity.JobOwner) (*StartResult, error) {
	ctx, span := tracer.Start(ctx, "document.Orchestrator.Start")
	defer span.End()

	outline, err := o.planner.Plan(ctx, prompt, docType, history)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.DocumentGenerationTotal.WithLabelValues(ModeIterativeStart, string(docType), "error").Inc()
		return nil, err
	}

	job := entity.NewGenerationJob(o.newID(), outline, owner, o.now())
	if err := o.jobs.Create(ctx, job); err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	metrics.JobsCreatedTotal.Inc()
	metrics.DocumentGenerationTotal.WithLabelValues(ModeIterativeStart, string(docType), "success").Inc()
	span.SetAttributes(attribute.String("job.id", job.ID), attribute.Int("job.sections", job.Total()))

	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)
	logger.Info(ctx, "generation job created", "title", outline.Title, "sections", job.Total())
	o.publish(ctx, &service.GenerationEvent{
		Type:       service.EventJobStarted,
		Mode:       ModeIterativeStart,
		DocType:    string(docType),
		JobID:      job.ID,
		DocumentID: owner.DocumentID,
		UserID:     owner.UserID,
		Total:      job.Total(),
	})

	return &StartResult{
		Mode:         ModeIterativeStart,
		JobID:        job.ID,
		Document:     outline.Meta(),
		SectionsMeta: outline.Manifest(),
	}, nil
}

// Pull 生成任务中的第 index 个章节，并把章节摘要追加到任务
// 生成使用拉取开始时的摘要快照；未开启串行化时，同一任务的并发拉取后写覆盖先写
// caller 非空且任务有属主时，只允许属主拉取
func (o *Orchestrator) Pull(ctx context.Context, jobID string, index int, caller string) (*SectionPullResult, error) {
	ctx, span := tracer.Start(ctx, "document.Orchestrator.Pull")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID), attribute.Int("section.index", index))
	ctx = logger.WithContext(ctx, logger.JobIDKey, jobID)

	if o.cfg.SerializePulls {
		unlock := o.pullLocks.Lock(jobID)
		defer unlock()
	}

	res, err := o.pull(ctx, jobID, index, caller)
	if err != nil {
		tracer.RecordError(span, err)
		metrics.JobPullsTotal.WithLabelValues(pullStatus(err)).Inc()
		return nil, err
	}
	metrics.JobPullsTotal.WithLabelValues("success").Inc()
	return res, nil
}

func (o *Orchestrator) pull(ctx context.Context, jobID string, index int, caller string) (*SectionPullResult, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if caller != "" && job.Owner.UserID != "" && caller != job.Owner.UserID {
		return nil, errors.ErrForbidden.WithDetail("job belongs to another user")
	}

	section, ok := job.Section(index)
	if !ok {
		return nil, errors.ErrSectionIndexNotFound.WithDetail(fmt.Sprintf("section index %d not found in job (total %d)", index, job.Total()))
	}

	ctx = service.WithUsageOwner(ctx, job.Owner.DocumentID, job.Owner.UserID)
	snapshot := job.PriorSummary
	logger.Info(ctx, "generating section", "index", index+1, "total", job.Total(), "title", section.Title)

	res, err := o.sections.Generate(ctx, section, job.DocContext(), snapshot)
	if err != nil {
		return nil, err
	}

	updated := o.summarizer.Append(snapshot, section.Title, res.Blocks)
	if err := o.jobs.UpdateSummary(ctx, jobID, updated); err != nil {
		if !stderrors.Is(err, errors.ErrJobNotFound) {
			return nil, err
		}
		// 生成期间任务已过期：章节照常返回，摘要不再保留
		logger.Warn(ctx, "job expired during section generation, summary dropped", "index", index)
	}

	o.publish(ctx, &service.GenerationEvent{
		Type:       service.EventSectionGenerated,
		Mode:       ModeIterativeStart,
		DocType:    string(job.Outline.Format),
		JobID:      jobID,
		DocumentID: job.Owner.DocumentID,
		UserID:     job.Owner.UserID,
		SectionID:  section.SectionID,
		Index:      index,
		Total:      job.Total(),
		BlockCount: len(res.Blocks),
	})

	return &SectionPullResult{
		SectionID: section.SectionID,
		Title:     section.Title,
		Index:     index,
		Total:     job.Total(),
		Blocks:    res.Blocks,
		Owner:     job.Owner,
	}, nil
}

func (o *Orchestrator) publish(ctx context.Context, evt *service.GenerationEvent) {
	evt.At = o.now()
	if err := o.events.PublishGenerationEvent(ctx, evt); err != nil {
		logger.Warn(ctx, "failed to publish generation event", "type", evt.Type, "error", err.Error())
	}
}

func pullStatus(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrJobNotFound):
		return "job_not_found"
	case stderrors.Is(err, errors.ErrSectionIndexNotFound):
		return "index_not_found"
	case stderrors.Is(err, errors.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

// keyedMutex 按 key 加锁，无人持有时回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
