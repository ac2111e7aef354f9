package postgres

import (
	"context"
	"fmt"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
)

type ConversationTurnRepository struct {
	client *Client
}

var _ repository.ConversationTurnRepository = (*ConversationTurnRepository)(nil)

func NewConversationTurnRepository(client *Client) *ConversationTurnRepository {
	return &ConversationTurnRepository{client: client}
}

func (r *ConversationTurnRepository) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationTurnRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(turn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create conversation turn: %w", err)
	}
	return nil
}

// ListByKey 按时间正序返回，limit<=0 时不限条数
func (r *ConversationTurnRepository) ListByKey(ctx context.Context, key entity.MemoryKey, limit int) ([]*entity.ConversationTurn, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationTurnRepository.ListByKey")
	defer span.End()

	query := getDB(ctx, r.client.db).
		Where("document_id = ? AND user_id = ?", key.DocumentID, key.UserID).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var turns []*entity.ConversationTurn
	if err := query.Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	return turns, nil
}

func (r *ConversationTurnRepository) DeleteByKey(ctx context.Context, key entity.MemoryKey) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationTurnRepository.DeleteByKey")
	defer span.End()

	res := getDB(ctx, r.client.db).
		Where("document_id = ? AND user_id = ?", key.DocumentID, key.UserID).
		Delete(&entity.ConversationTurn{})
	if res.Error != nil {
		span.RecordError(res.Error)
		return 0, fmt.Errorf("failed to delete conversation turns: %w", res.Error)
	}
	return res.RowsAffected, nil
}
