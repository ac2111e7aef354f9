package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/interfaces/http/dto"
	"docs-agent-api/pkg/logger"
)

// ConversationService 会话记忆与文档状态
type ConversationService interface {
	History(ctx context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error)
	ClearHistory(ctx context.Context, key entity.MemoryKey) error
	SyncState(ctx context.Context, key entity.MemoryKey, state *entity.DocumentState) error
	State(ctx context.Context, key entity.MemoryKey) (*entity.DocumentState, error)
}

// ConversationHandler 会话记忆处理器
type ConversationHandler struct {
	svc ConversationService
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// GetHistory 获取会话记忆
// @Summary 获取文档的会话记忆
// @Tags Conversations
// @Produce json
// @Param doc_id path string true "文档 ID"
// @Success 200 {object} dto.Response[dto.ConversationTurnListResponse]
// @Router /v1/documents/{doc_id}/history [get]
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocumentID(c)

	turns, err := h.svc.History(ctx, memoryKey(c, docID))
	if err != nil {
		logger.Error(ctx, "failed to load history", err, "document_id", docID)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, dto.ToConversationTurnListResponse(docID, turns))
}

// ClearHistory 清空会话记忆
// @Summary 清空文档的会话记忆
// @Tags Conversations
// @Param doc_id path string true "文档 ID"
// @Success 204
// @Router /v1/documents/{doc_id}/history [delete]
func (h *ConversationHandler) ClearHistory(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocumentID(c)

	if err := h.svc.ClearHistory(ctx, memoryKey(c, docID)); err != nil {
		logger.Error(ctx, "failed to clear history", err, "document_id", docID)
		dto.Fail(c, err)
		return
	}
	dto.NoContent(c)
}

// SyncState 同步文档状态
// @Summary 同步客户端文档结构
// @Tags Conversations
// @Accept json
// @Param doc_id path string true "文档 ID"
// @Param body body dto.SyncStateRequest true "文档状态"
// @Success 200 {object} dto.Response[map[string]string]
// @Router /v1/documents/{doc_id}/state [post]
func (h *ConversationHandler) SyncState(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocumentID(c)

	var req dto.SyncStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.svc.SyncState(ctx, memoryKey(c, docID), &req.State); err != nil {
		logger.Error(ctx, "failed to sync document state", err, "document_id", docID)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, map[string]string{"status": "success"})
}

// GetState 读取文档状态
// @Summary 读取最近一次同步的文档结构
// @Tags Conversations
// @Produce json
// @Param doc_id path string true "文档 ID"
// @Success 200 {object} dto.Response[entity.DocumentState]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{doc_id}/state [get]
func (h *ConversationHandler) GetState(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocumentID(c)

	state, err := h.svc.State(ctx, memoryKey(c, docID))
	if err != nil {
		dto.Fail(c, err)
		return
	}
	dto.Success(c, state)
}
