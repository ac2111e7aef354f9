package postgres

import (
	"context"
	"fmt"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/domain/repository"
)

type LLMUsageEventRepository struct {
	client *Client
}

var _ repository.LLMUsageEventRepository = (*LLMUsageEventRepository)(nil)

func NewLLMUsageEventRepository(client *Client) *LLMUsageEventRepository {
	return &LLMUsageEventRepository{client: client}
}

func (r *LLMUsageEventRepository) Create(ctx context.Context, event *entity.LLMUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create llm usage event: %w", err)
	}
	return nil
}

func (r *LLMUsageEventRepository) SumByDocument(ctx context.Context, documentID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.LLMUsageEventRepository.SumByDocument")
	defer span.End()

	var total int64
	if err := getDB(ctx, r.client.db).Model(&entity.LLMUsageEvent{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(SUM(tokens_prompt + tokens_completion),0)").
		Scan(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum llm usage: %w", err)
	}
	return total, nil
}
