package memory

import (
	"context"
	"sync"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// DocumentStateStore 进程内文档状态，不设过期
type DocumentStateStore struct {
	mu     sync.RWMutex
	states map[entity.MemoryKey]entity.DocumentState
}

var _ repository.DocumentStateRepository = (*DocumentStateStore)(nil)

func NewDocumentStateStore() *DocumentStateStore {
	return &DocumentStateStore{states: make(map[entity.MemoryKey]entity.DocumentState)}
}

func (s *DocumentStateStore) Save(_ context.Context, key entity.MemoryKey, state *entity.DocumentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = *state
	return nil
}

func (s *DocumentStateStore) Get(_ context.Context, key entity.MemoryKey) (*entity.DocumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key]
	if !ok {
		return nil, errors.ErrDocumentNotFound
	}
	return &state, nil
}
