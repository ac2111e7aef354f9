package document

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/workflow/contract"
	"docs-agent-api/pkg/errors"
)

func TestOrchestrator_RunBatch(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.
		on(contract.OutlineSchemaName, outlineJSON("report", 3)).
		on(contract.SectionSchemaName,
			sectionJSON("s1", "Body one"),
			sectionJSON("s2", "Body two"),
			sectionJSON("s3", "Body three"),
		)

	res, err := rig.orchestrator.RunBatch(context.Background(), "write a report", entity.FormatReport, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeIterative, res.Mode)
	assert.Equal(t, entity.OperationCreate, res.Operation)
	assert.Equal(t, "Quarterly Review", res.Document.Title)
	require.Len(t, res.Sections, 3)
	for i, sec := range res.Sections {
		assert.Equal(t, "s"+string(rune('1'+i)), sec.SectionID)
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second}, rig.pacer.waits)

	sections := rig.provider.calls(contract.SectionSchemaName)
	require.Len(t, sections, 3)
	assert.Contains(t, sections[0].System, FirstSectionSentinel)
	assert.Contains(t, sections[1].System, "[Section 1]: Body one...")
	assert.Contains(t, sections[2].System, "[Section 1]: Body one...\n[Section 2]: Body two...")
	for _, req := range sections {
		assert.Empty(t, req.History)
		assert.False(t, req.Strict)
	}
}

func TestOrchestrator_RunBatchAbortsOnSectionFailure(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.
		on(contract.OutlineSchemaName, outlineJSON("report", 3)).
		fail(contract.SectionSchemaName, stderrors.New("connection reset"))

	res, err := rig.orchestrator.RunBatch(context.Background(), "write a report", entity.FormatReport, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errors.ErrProviderError)
	assert.Len(t, rig.provider.calls(contract.SectionSchemaName), 1)
}

func TestOrchestrator_Start(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.on(contract.OutlineSchemaName, outlineJSON("proposal", 4))

	owner := entity.JobOwner{DocumentID: "doc-1", UserID: "u-1"}
	res, err := rig.orchestrator.Start(context.Background(), "a proposal", entity.FormatProposal, nil, owner)
	require.NoError(t, err)

	assert.Equal(t, ModeIterativeStart, res.Mode)
	assert.Equal(t, "job-1", res.JobID)
	require.Len(t, res.SectionsMeta, 4)
	for i, m := range res.SectionsMeta {
		assert.Equal(t, i, m.Index)
	}
	assert.Equal(t, entity.SectionIntro, res.SectionsMeta[0].Type)
	assert.Empty(t, rig.provider.calls(contract.SectionSchemaName))
	assert.Empty(t, rig.pacer.waits)

	job, err := rig.jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Empty(t, job.PriorSummary)
	assert.Equal(t, owner, job.Owner)
	assert.Equal(t, rig.clock.Now(), job.CreatedAt)
}

func TestOrchestrator_StartRejectsBadOutline(t *testing.T) {
	tests := []struct {
		name    string
		outline string
		want    error
	}{
		{name: "not json", outline: "not json", want: errors.ErrMalformedCompletion},
		{name: "empty", outline: "", want: errors.ErrMalformedCompletion},
		{name: "no sections", outline: `{"title":"Empty","format":"report","sections":[]}`, want: errors.ErrPlanningFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t, defaultOrchestratorConfig())
			rig.provider.on(contract.OutlineSchemaName, tt.outline)

			res, err := rig.orchestrator.Start(context.Background(), "x", entity.FormatReport, nil, entity.JobOwner{})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, rig.jobs.Len())
		})
	}
}

func TestOrchestrator_PullAppendsSummary(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.
		on(contract.OutlineSchemaName, outlineJSON("report", 3)).
		on(contract.SectionSchemaName, sectionJSON("s1", "Body one"))

	ctx := context.Background()
	start, err := rig.orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{})
	require.NoError(t, err)

	res, err := rig.orchestrator.Pull(ctx, start.JobID, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SectionID)
	assert.Equal(t, "Section 1", res.Title)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Blocks, 1)

	// 重复拉取同一章节不去重，摘要中出现两段
	_, err = rig.orchestrator.Pull(ctx, start.JobID, 0, "")
	require.NoError(t, err)

	job, err := rig.jobs.Get(ctx, start.JobID)
	require.NoError(t, err)
	assert.Equal(t, "\n[Section 1]: Body one...\n[Section 1]: Body one...", job.PriorSummary)

	sections := rig.provider.calls(contract.SectionSchemaName)
	require.Len(t, sections, 2)
	assert.Contains(t, sections[0].System, FirstSectionSentinel)
	assert.Contains(t, sections[1].System, "[Section 1]: Body one...")
	assert.Empty(t, rig.pacer.waits)
}

func TestOrchestrator_PullIndexOutOfRange(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.on(contract.OutlineSchemaName, outlineJSON("report", 2))

	ctx := context.Background()
	start, err := rig.orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{})
	require.NoError(t, err)

	for _, idx := range []int{2, -1} {
		_, err = rig.orchestrator.Pull(ctx, start.JobID, idx, "")
		assert.ErrorIs(t, err, errors.ErrSectionIndexNotFound)
	}

	job, err := rig.jobs.Get(ctx, start.JobID)
	require.NoError(t, err)
	assert.Empty(t, job.PriorSummary)
	assert.Empty(t, rig.provider.calls(contract.SectionSchemaName))
}

func TestOrchestrator_PullRejectsOtherUsers(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.
		on(contract.OutlineSchemaName, outlineJSON("report", 2)).
		on(contract.SectionSchemaName, sectionJSON("s1", "Body one"))

	ctx := context.Background()
	start, err := rig.orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{DocumentID: "doc-1", UserID: "u-1"})
	require.NoError(t, err)

	_, err = rig.orchestrator.Pull(ctx, start.JobID, 0, "u-2")
	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.Equal(t, 403, errors.AsAppError(err).HTTPStatus)
	assert.Empty(t, rig.provider.calls(contract.SectionSchemaName))

	job, err := rig.jobs.Get(ctx, start.JobID)
	require.NoError(t, err)
	assert.Empty(t, job.PriorSummary)

	res, err := rig.orchestrator.Pull(ctx, start.JobID, 0, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SectionID)

	// 未认证的调用方不做属主校验
	_, err = rig.orchestrator.Pull(ctx, start.JobID, 1, "")
	assert.NoError(t, err)
}

func TestOrchestrator_PullUnknownOrExpiredJob(t *testing.T) {
	rig := newTestRig(t, defaultOrchestratorConfig())
	rig.provider.on(contract.OutlineSchemaName, outlineJSON("report", 2))

	ctx := context.Background()
	_, err := rig.orchestrator.Pull(ctx, "missing", 0, "")
	assert.ErrorIs(t, err, errors.ErrJobNotFound)

	start, err := rig.orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{})
	require.NoError(t, err)

	rig.clock.Advance(jobTTL)
	_, err = rig.orchestrator.Pull(ctx, start.JobID, 0, "")
	assert.ErrorIs(t, err, errors.ErrJobNotFound)
	assert.Empty(t, rig.provider.calls(contract.SectionSchemaName))
}

func TestOrchestrator_SerializedPullsKeepEveryFragment(t *testing.T) {
	cfg := defaultOrchestratorConfig()
	cfg.SerializePulls = true
	rig := newTestRig(t, cfg)
	rig.provider.
		on(contract.OutlineSchemaName, outlineJSON("report", 4)).
		on(contract.SectionSchemaName, sectionJSON("sx", "Shared body"))

	ctx := context.Background()
	start, err := rig.orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := rig.orchestrator.Pull(ctx, start.JobID, idx, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	job, err := rig.jobs.Get(ctx, start.JobID)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		assert.Contains(t, job.PriorSummary, "[Section "+string(rune('0'+i))+"]")
	}
	assert.Equal(t, 4, strings.Count(job.PriorSummary, "\n["))
}

func TestOrchestrator_UnserializedPullsLastWriterWins(t *testing.T) {
	provider := newGatedProvider(newScriptedProvider().
		on(contract.OutlineSchemaName, outlineJSON("report", 2)).
		on(contract.SectionSchemaName, sectionJSON("sx", "Shared body")))
	orchestrator, jobs := newBareOrchestrator(t, provider, defaultOrchestratorConfig())

	ctx := context.Background()
	start, err := orchestrator.Start(ctx, "x", entity.FormatReport, nil, entity.JobOwner{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := orchestrator.Pull(ctx, start.JobID, idx, "")
			assert.NoError(t, err)
		}(i)
	}
	// 两次拉取都已读到空摘要快照后再放行
	<-provider.arrived
	<-provider.arrived
	close(provider.release)
	wg.Wait()

	job, err := jobs.Get(ctx, start.JobID)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(job.PriorSummary, "\n["))
	first := strings.Contains(job.PriorSummary, "[Section 1]")
	second := strings.Contains(job.PriorSummary, "[Section 2]")
	assert.True(t, first != second, "exactly one fragment survives: %q", job.PriorSummary)
}

func TestKeyedMutex_ReleasesIdleKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Len(t, k.locks, 2)

	unlockA()
	unlockB()
	assert.Empty(t, k.locks)
}
