package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/metrics"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func sampleJob(id string, createdAt time.Time) *entity.GenerationJob {
	outline := &entity.Outline{
		DocumentMeta: entity.DocumentMeta{Title: "Plan", Format: entity.FormatReport},
		Sections: []entity.SectionDescriptor{
			{SectionID: "s1", Title: "Intro", Type: entity.SectionIntro, Depth: 1},
			{SectionID: "s2", Title: "Body", Type: entity.SectionBody, Depth: 1},
		},
	}
	return entity.NewGenerationJob(id, outline, entity.JobOwner{DocumentID: "doc-1"}, createdAt)
}

func TestJobStore_Lifecycle(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewJobStore(client, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleJob("j1", time.Now())))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 2, job.Total())
	assert.Equal(t, "doc-1", job.Owner.DocumentID)

	require.NoError(t, store.UpdateSummary(ctx, "j1", "\n[Intro]: hello..."))
	job, err = store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "\n[Intro]: hello...", job.PriorSummary)

	// 更新不续期
	ttl := mr.TTL(jobKey("j1"))
	assert.True(t, ttl > 29*time.Minute && ttl <= 30*time.Minute, "ttl %s", ttl)

	mr.FastForward(31 * time.Minute)
	_, err = store.Get(ctx, "j1")
	assert.ErrorIs(t, err, errors.ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateSummary(ctx, "j1", "late"), errors.ErrJobNotFound)
	assert.False(t, mr.Exists(jobKey("j1")))
}

func TestJobStore_UnknownJob(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewJobStore(client, time.Minute)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateSummary(context.Background(), "nope", "x"), errors.ErrJobNotFound)
}

func TestJobStore_CreateAlreadyExpired(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewJobStore(client, time.Minute)

	err := store.Create(context.Background(), sampleJob("old", time.Now().Add(-2*time.Minute)))
	assert.ErrorIs(t, err, errors.ErrJobNotFound)
}

func TestDocumentStateStore(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewDocumentStateStore(NewCache(client), time.Hour)
	ctx := context.Background()
	key := entity.MemoryKey{DocumentID: "doc-1", UserID: "u-1"}

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, errors.ErrDocumentNotFound)

	state := &entity.DocumentState{
		Outline:         []entity.DocumentOutlineEntry{{BlockID: "b1", Type: "paragraph", Summary: "intro"}},
		OrderedBlockIDs: []string{"b1"},
	}
	require.NoError(t, store.Save(ctx, key, state))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, state.Outline, got.Outline)
	assert.Equal(t, time.Hour, mr.TTL(stateKey(key)))

	require.NoError(t, mr.Set(stateKey(key), "{not json"))
	_, err = store.Get(ctx, key)
	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.CodeCacheError, appErr.Code)
}

func TestCache_GetOrLoadCoalescesMisses(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return map[string]int{"total": 42}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := cache.GetOrLoad(ctx, "usage:doc-1", time.Minute, loader)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"total":42}`, string(data))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(5))

	before := calls.Load()
	_, err := cache.GetOrLoad(ctx, "usage:doc-1", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load())
}

func TestRateLimiter_Allow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	base := time.Now()
	limiter.now = func() time.Time { return base }
	ctx := context.Background()
	key := BuildRateLimitKey("u-1", "/v1/generate")

	for want := 2; want >= 0; want-- {
		remaining, retry, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.Zero(t, retry)
		assert.Equal(t, want, remaining)
	}

	limiter.now = func() time.Time { return base.Add(20 * time.Second) }
	remaining, retry, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Equal(t, 40*time.Second, retry)

	// 窗口滑过后恢复
	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	remaining, retry, err = limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, retry)
	assert.Equal(t, 2, remaining)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "docs:job:j1", Key("job", "j1"))
	assert.Equal(t, "docs:state:doc:", Key("state", "doc", ""))
	assert.Equal(t, "docs:ratelimit:ip:1.2.3.4:/v1/generate", BuildRateLimitKey("ip:1.2.3.4", "/v1/generate"))
}

func TestClient_RecordsCommandLatency(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	before := testutil.CollectAndCount(metrics.RedisCommandDuration)
	require.NoError(t, client.HealthCheck(ctx))
	_, err := client.Redis().Get(ctx, "missing").Result()
	require.True(t, IsNil(err))

	assert.Greater(t, testutil.CollectAndCount(metrics.RedisCommandDuration), before)
}
