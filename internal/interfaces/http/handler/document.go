package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/application/document"
	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/internal/interfaces/http/dto"
	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
)

// DocumentService 文档生成用例
type DocumentService interface {
	Generate(ctx context.Context, in *document.GenerateInput) (*document.GenerateOutput, error)
	PullSection(ctx context.Context, jobID string, index int, userID string) (*document.SectionPullResult, error)
	InlineEdit(ctx context.Context, in *document.InlineEditInput) (*entity.DocumentResponse, error)
}

// DocumentHandler 文档生成处理器
type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Generate 生成文档
// @Summary 生成文档
// @Description 按 mode 与文档类型选择单次生成、分章节任务、批量生成或章节编辑
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.Response[any]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/generate [post]
func (h *DocumentHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		dto.BadRequest(c, "prompt is required")
		return
	}

	out, err := h.svc.Generate(ctx, &document.GenerateInput{
		Prompt:     req.Prompt,
		DocType:    dto.NormalizeDocType(req.DocType),
		DocumentID: strings.TrimSpace(req.DocID),
		UserID:     currentUserID(c),
		Mode:       req.Mode,
	})
	if err != nil {
		logger.Error(ctx, "failed to generate document", err, "doc_type", req.DocType, "mode", req.Mode)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, out.Payload())
}

// PullSection 拉取章节
// @Summary 拉取分章节任务中的一个章节
// @Tags Documents
// @Produce json
// @Param job_id path string true "任务 ID"
// @Param index path int true "章节下标，从 0 开始"
// @Success 200 {object} dto.Response[document.SectionPullResult]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sections/{job_id}/{index} [get]
func (h *DocumentHandler) PullSection(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := dto.BindJobID(c)

	index, ok := dto.BindSectionIndex(c)
	if !ok {
		dto.Fail(c, errors.ErrSectionIndexNotFound.WithDetail("section index must be a non-negative integer"))
		return
	}

	res, err := h.svc.PullSection(ctx, jobID, index, currentUserID(c))
	if err != nil {
		logger.Error(ctx, "failed to pull section", err, "job_id", jobID, "index", index)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, res)
}

// InlineEdit 行内编辑
// @Summary 对选中文本执行 patch 或 insert
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body dto.InlineEditRequest true "编辑请求"
// @Success 200 {object} dto.Response[any]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/edits [post]
func (h *DocumentHandler) InlineEdit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.InlineEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.InlineEdit(ctx, &document.InlineEditInput{
		Operation:     entity.OperationKind(req.Operation),
		Text:          req.Text(),
		Instruction:   req.Payload.Instruction,
		TargetBlockID: req.Payload.TargetBlockID,
		DocType:       dto.NormalizeDocType(req.DocType),
		DocumentID:    strings.TrimSpace(req.DocID),
		UserID:        currentUserID(c),
	})
	if err != nil {
		logger.Error(ctx, "failed to process inline edit", err, "operation", req.Operation)
		dto.Fail(c, err)
		return
	}
	dto.Success(c, resp)
}
