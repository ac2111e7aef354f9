// Package memory 提供进程内存储实现，作为默认后端与无外部依赖时的回退
package memory

import (
	"context"
	"sync"
	"time"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

type jobEntry struct {
	job   entity.GenerationJob
	timer *time.Timer
}

// JobStore 进程内任务注册表
// 过期由两处保证：创建时挂的 AfterFunc 定时删除，读取时按 createdAt+ttl 判定
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*jobEntry
	ttl  time.Duration
	now  func() time.Time
}

var _ repository.JobRepository = (*JobStore)(nil)

// NewJobStore now 为 nil 时使用 time.Now
func NewJobStore(ttl time.Duration, now func() time.Time) *JobStore {
	if now == nil {
		now = time.Now
	}
	return &JobStore{
		jobs: make(map[string]*jobEntry),
		ttl:  ttl,
		now:  now,
	}
}

func (s *JobStore) Create(_ context.Context, job *entity.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[job.ID]; ok && old.timer != nil {
		old.timer.Stop()
	}

	id := job.ID
	entry := &jobEntry{job: *job}
	remaining := job.ExpiresAt(s.ttl).Sub(s.now())
	if remaining > 0 {
		entry.timer = time.AfterFunc(remaining, func() { s.evict(id, entry) })
	}
	s.jobs[id] = entry
	return nil
}

func (s *JobStore) Get(_ context.Context, id string) (*entity.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(id)
	if !ok {
		return nil, errors.ErrJobNotFound
	}
	job := entry.job
	return &job, nil
}

func (s *JobStore) UpdateSummary(_ context.Context, id string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(id)
	if !ok {
		return errors.ErrJobNotFound
	}
	entry.job.PriorSummary = summary
	return nil
}

// Len 当前保留的任务数（含已过期但定时器未触发的）
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close 停止全部过期定时器
func (s *JobStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.jobs {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.jobs, id)
	}
}

// live 调用方需持有锁
func (s *JobStore) live(id string) (*jobEntry, bool) {
	entry, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	if entry.job.Expired(s.now(), s.ttl) {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.jobs, id)
		return nil, false
	}
	return entry, true
}

func (s *JobStore) evict(id string, entry *jobEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 同 ID 被重新注册时不误删
	if cur, ok := s.jobs[id]; ok && cur == entry {
		delete(s.jobs, id)
	}
}
