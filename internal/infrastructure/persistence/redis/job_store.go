package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// JobStore 任务注册表，键的 TTL 即任务的硬过期
type JobStore struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

var _ repository.JobRepository = (*JobStore)(nil)

func NewJobStore(client *Client, ttl time.Duration) *JobStore {
	return &JobStore{client: client, ttl: ttl, now: time.Now}
}

func jobKey(id string) string {
	return Key("job", id)
}

func (s *JobStore) Create(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "redis.JobStore.Create",
		trace.WithAttributes(attribute.String("job.id", job.ID)))
	defer span.End()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	remaining := job.ExpiresAt(s.ttl).Sub(s.now())
	if remaining <= 0 {
		return errors.ErrJobNotFound
	}
	if err := s.client.rdb.Set(ctx, jobKey(job.ID), data, remaining).Err(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeCacheError, "failed to store job")
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*entity.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "redis.JobStore.Get",
		trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if IsNil(err) {
			return nil, errors.ErrJobNotFound
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to load job")
	}

	var job entity.GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.CodeCacheError, "corrupted job record")
	}
	return &job, nil
}

// UpdateSummary 读改写整条记录；SET XX KEEPTTL 保证不续期也不复活已过期的键
func (s *JobStore) UpdateSummary(ctx context.Context, id string, summary string) error {
	ctx, span := tracer.Start(ctx, "redis.JobStore.UpdateSummary",
		trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	job.PriorSummary = summary

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = s.client.rdb.SetArgs(ctx, jobKey(id), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if IsNil(err) {
			return errors.ErrJobNotFound
		}
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeCacheError, "failed to update job summary")
	}
	return nil
}
