package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// ConversationStore 进程内会话记忆，按 (文档, 用户) 分区
type ConversationStore struct {
	mu    sync.RWMutex
	turns map[entity.MemoryKey][]*entity.ConversationTurn
	now   func() time.Time
}

var _ repository.ConversationMemory = (*ConversationStore)(nil)

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		turns: make(map[entity.MemoryKey][]*entity.ConversationTurn),
		now:   time.Now,
	}
}

// History 返回快照副本，后续追加不影响已返回的切片
func (s *ConversationStore) History(_ context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[key]
	out := make([]*entity.ConversationTurn, len(turns))
	for i, t := range turns {
		c := *t
		out[i] = &c
	}
	return out, nil
}

func (s *ConversationStore) Append(_ context.Context, key entity.MemoryKey, role entity.Role, content string) error {
	if !role.Remembered() {
		return errors.ErrInvalidParam.WithDetail("unsupported conversation role: " + string(role))
	}
	turn := entity.NewConversationTurn(key.DocumentID, key.UserID, role, content)
	turn.ID = uuid.NewString()
	turn.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[key] = append(s.turns[key], turn)
	return nil
}

func (s *ConversationStore) Clear(_ context.Context, key entity.MemoryKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, key)
	return nil
}
