package postgres

import (
	"context"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// ConversationMemory 基于会话轮次表的持久化记忆
type ConversationMemory struct {
	turns repository.ConversationTurnRepository
}

var _ repository.ConversationMemory = (*ConversationMemory)(nil)

func NewConversationMemory(turns repository.ConversationTurnRepository) *ConversationMemory {
	return &ConversationMemory{turns: turns}
}

func (m *ConversationMemory) History(ctx context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error) {
	turns, err := m.turns.ListByKey(ctx, key, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load conversation history")
	}
	return turns, nil
}

func (m *ConversationMemory) Append(ctx context.Context, key entity.MemoryKey, role entity.Role, content string) error {
	if !role.Remembered() {
		return errors.ErrInvalidParam.WithDetail("unsupported conversation role: " + string(role))
	}
	turn := entity.NewConversationTurn(key.DocumentID, key.UserID, role, content)
	if err := m.turns.Create(ctx, turn); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to append conversation turn")
	}
	return nil
}

func (m *ConversationMemory) Clear(ctx context.Context, key entity.MemoryKey) error {
	if _, err := m.turns.DeleteByKey(ctx, key); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to clear conversation history")
	}
	return nil
}
