package redis

import (
	"context"
	"time"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// DocumentStateStore 客户端同步的文档状态，按 TTL 缓存
type DocumentStateStore struct {
	cache *Cache
	ttl   time.Duration
}

var _ repository.DocumentStateRepository = (*DocumentStateStore)(nil)

func NewDocumentStateStore(cache *Cache, ttl time.Duration) *DocumentStateStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DocumentStateStore{cache: cache, ttl: ttl}
}

func stateKey(key entity.MemoryKey) string {
	return Key("state", key.DocumentID, key.UserID)
}

func (s *DocumentStateStore) Save(ctx context.Context, key entity.MemoryKey, state *entity.DocumentState) error {
	if err := s.cache.SetJSON(ctx, stateKey(key), state, s.ttl); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "failed to save document state")
	}
	return nil
}

func (s *DocumentStateStore) Get(ctx context.Context, key entity.MemoryKey) (*entity.DocumentState, error) {
	var state entity.DocumentState
	found, err := s.cache.GetJSON(ctx, stateKey(key), &state)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to load document state")
	}
	if !found {
		return nil, errors.ErrDocumentNotFound
	}
	return &state, nil
}
