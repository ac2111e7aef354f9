// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"docs-agent-api/internal/domain/entity"
)

// currentUserID 认证中间件写入的调用方，未认证时为空串
func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func memoryKey(c *gin.Context, documentID string) entity.MemoryKey {
	return entity.MemoryKey{DocumentID: documentID, UserID: currentUserID(c)}
}
