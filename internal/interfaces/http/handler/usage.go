package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/application/usage"
	"docs-agent-api/internal/interfaces/http/dto"
	"docs-agent-api/pkg/logger"
)

// UsageReporter 用量查询
type UsageReporter interface {
	DocumentTotal(ctx context.Context, documentID string) (*usage.DocumentUsage, error)
}

// UsageHandler 用量处理器
type UsageHandler struct {
	reporter UsageReporter
}

func NewUsageHandler(reporter UsageReporter) *UsageHandler {
	return &UsageHandler{reporter: reporter}
}

// GetDocumentUsage 文档累计 token
// @Summary 查询文档累计消耗的 token
// @Tags Usage
// @Produce json
// @Param doc_id path string true "文档 ID"
// @Success 200 {object} dto.Response[usage.DocumentUsage]
// @Router /v1/documents/{doc_id}/usage [get]
func (h *UsageHandler) GetDocumentUsage(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocumentID(c)

	if h.reporter == nil {
		dto.Error(c, 503, "usage ledger not configured")
		return
	}
	total, err := h.reporter.DocumentTotal(ctx, docID)
	if err != nil {
		logger.Error(ctx, "failed to load document usage", err, "document_id", docID)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, total)
}
