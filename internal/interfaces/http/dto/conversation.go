package dto

import (
	"time"

	"docs-agent-api/internal/domain/entity"
)

// ConversationTurnResponse 会话轮次
type ConversationTurnResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ConversationTurnListResponse 会话轮次列表
type ConversationTurnListResponse struct {
	DocumentID string                      `json:"document_id"`
	Turns      []*ConversationTurnResponse `json:"turns"`
}

func ToConversationTurnListResponse(documentID string, turns []*entity.ConversationTurn) *ConversationTurnListResponse {
	out := make([]*ConversationTurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, &ConversationTurnResponse{
			ID:        t.ID,
			Role:      string(t.Role),
			Content:   t.Content,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return &ConversationTurnListResponse{DocumentID: documentID, Turns: out}
}
