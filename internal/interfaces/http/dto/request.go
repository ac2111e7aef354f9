package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/domain/entity"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt  string `json:"prompt" binding:"required"`
	DocType string `json:"doc_type,omitempty"`
	DocID   string `json:"doc_id,omitempty" binding:"max=128"`
	Mode    string `json:"mode,omitempty" binding:"omitempty,oneof=edit batch"`
}

// InlineEditPayload 行内编辑载荷：patch 用 original_text，insert 用 context
type InlineEditPayload struct {
	OriginalText  string `json:"original_text,omitempty"`
	Context       string `json:"context,omitempty"`
	Instruction   string `json:"instruction" binding:"required"`
	TargetBlockID string `json:"target_block_id,omitempty"`
}

// InlineEditRequest 行内编辑请求
type InlineEditRequest struct {
	Operation string            `json:"operation" binding:"required,oneof=patch insert"`
	Payload   InlineEditPayload `json:"payload" binding:"required"`
	DocType   string            `json:"doc_type,omitempty"`
	DocID     string            `json:"doc_id,omitempty" binding:"max=128"`
}

// Text patch 取原文，insert 取上下文
func (r *InlineEditRequest) Text() string {
	if entity.OperationKind(r.Operation) == entity.OperationInsert {
		return r.Payload.Context
	}
	return r.Payload.OriginalText
}

// SyncStateRequest 文档状态同步请求
type SyncStateRequest struct {
	State entity.DocumentState `json:"state"`
}

// NormalizeDocType 小写化文档类型，空值保持为空
func NormalizeDocType(raw string) entity.DocumentFormat {
	return entity.DocumentFormat(strings.ToLower(strings.TrimSpace(raw)))
}

// BindJobID 从路径参数获取任务 ID
func BindJobID(c *gin.Context) string {
	return c.Param("job_id")
}

// BindDocumentID 从路径参数获取文档 ID
func BindDocumentID(c *gin.Context) string {
	return c.Param("doc_id")
}

// BindSectionIndex 解析章节下标，非法或负数返回 false
func BindSectionIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
