package document

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"docs-agent-api/internal/infrastructure/persistence/memory"
	"docs-agent-api/internal/workflow/contract"
	workflowport "docs-agent-api/internal/workflow/port"
	"docs-agent-api/internal/workflow/prompt"
)

// scriptedProvider 按 SchemaName 返回预置输出；队列只剩一个时重复使用
type scriptedProvider struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	requests  []*workflowport.CompletionRequest
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

func (p *scriptedProvider) on(schema string, outputs ...string) *scriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[schema] = append(p.responses[schema], outputs...)
	return p
}

func (p *scriptedProvider) fail(schema string, err error) *scriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[schema] = err
	return p
}

func (p *scriptedProvider) Complete(_ context.Context, req *workflowport.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := *req
	p.requests = append(p.requests, &cp)
	if err := p.errs[req.SchemaName]; err != nil {
		return "", err
	}
	queue := p.responses[req.SchemaName]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for %s", req.SchemaName)
	}
	out := queue[0]
	if len(queue) > 1 {
		p.responses[req.SchemaName] = queue[1:]
	}
	return out, nil
}

func (p *scriptedProvider) calls(schema string) []*workflowport.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*workflowport.CompletionRequest
	for _, r := range p.requests {
		if schema == "" || r.SchemaName == schema {
			out = append(out, r)
		}
	}
	return out
}

type recordingPacer struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (p *recordingPacer) Wait(_ context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, d)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func outlineJSON(format string, n int) string {
	sections := make([]string, n)
	for i := range sections {
		typ := "body"
		if i == 0 {
			typ = "intro"
		}
		sections[i] = fmt.Sprintf(`{"section_id":"s%d","title":"Section %d","type":"%s","depth":1,"description":"part %d"}`, i+1, i+1, typ, i+1)
	}
	return fmt.Sprintf(`{"title":"Quarterly Review","format":"%s","sections":[%s]}`, format, strings.Join(sections, ","))
}

func sectionJSON(id, text string) string {
	return fmt.Sprintf(`{"section_id":"%s","blocks":[{"block_id":"%s_b1","type":"paragraph","content":"%s"}]}`, id, id, text)
}

const createJSON = `{"operation":"create","document":{"title":"Notes","format":"general","blocks":[{"block_id":"b1","type":"main_heading","content":"Notes"},{"block_id":"b2","type":"paragraph","content":"Hello"}]}}`

const jobTTL = 30 * time.Minute

type testRig struct {
	provider     *scriptedProvider
	pacer        *recordingPacer
	clock        *fakeClock
	jobs         *memory.JobStore
	memory       *memory.ConversationStore
	states       *memory.DocumentStateStore
	orchestrator *Orchestrator
	service      *Service
}

func newTestRig(t *testing.T, cfg OrchestratorConfig) *testRig {
	t.Helper()

	provider := newScriptedProvider()
	pacer := &recordingPacer{}
	clock := newFakeClock()
	jobs := memory.NewJobStore(jobTTL, clock.Now)
	t.Cleanup(jobs.Close)
	mem := memory.NewConversationStore()
	states := memory.NewDocumentStateStore()

	gateway := NewGateway(provider)
	prompts := prompt.NewRegistry()
	summarizer := NewSummarizer(0)

	seq := 0
	orchestrator := NewOrchestrator(
		NewPlanner(gateway, prompts, 0),
		NewSectionGenerator(gateway, prompts, 0),
		jobs,
		summarizer,
		cfg,
		WithPacer(pacer),
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("job-%d", seq)
		}),
	)
	svc := NewService(
		orchestrator,
		NewSingleShotGenerator(gateway, prompts, 0),
		NewSectionEditor(gateway, prompts, mem, states, 0),
		NewInlineEditor(gateway, prompts, states, 0),
		mem,
		states,
		summarizer,
		nil,
	)

	return &testRig{
		provider:     provider,
		pacer:        pacer,
		clock:        clock,
		jobs:         jobs,
		memory:       mem,
		states:       states,
		orchestrator: orchestrator,
		service:      svc,
	}
}

func defaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		PostOutlineDelay:  2 * time.Second,
		InterSectionDelay: 3 * time.Second,
	}
}

// gatedProvider 章节调用到达后阻塞，直到 release 被关闭
type gatedProvider struct {
	*scriptedProvider
	arrived chan struct{}
	release chan struct{}
}

func newGatedProvider(inner *scriptedProvider) *gatedProvider {
	return &gatedProvider{
		scriptedProvider: inner,
		arrived:          make(chan struct{}, 8),
		release:          make(chan struct{}),
	}
}

func (p *gatedProvider) Complete(ctx context.Context, req *workflowport.CompletionRequest) (string, error) {
	if req.SchemaName == contract.SectionSchemaName {
		p.arrived <- struct{}{}
		<-p.release
	}
	return p.scriptedProvider.Complete(ctx, req)
}

func newBareOrchestrator(t *testing.T, provider workflowport.CompletionProvider, cfg OrchestratorConfig) (*Orchestrator, *memory.JobStore) {
	t.Helper()

	jobs := memory.NewJobStore(jobTTL, time.Now)
	t.Cleanup(jobs.Close)
	gateway := NewGateway(provider)
	prompts := prompt.NewRegistry()
	return NewOrchestrator(
		NewPlanner(gateway, prompts, 0),
		NewSectionGenerator(gateway, prompts, 0),
		jobs,
		NewSummarizer(0),
		cfg,
		WithPacer(&recordingPacer{}),
	), jobs
}
