package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	v1.POST("/generate", h.Document.Generate)
	v1.GET("/sections/:job_id/:index", h.Document.PullSection)
	v1.POST("/edits", h.Document.InlineEdit)

	documents := v1.Group("/documents/:doc_id")
	{
		documents.GET("/history", h.Conversation.GetHistory)
		documents.DELETE("/history", h.Conversation.ClearHistory)
		documents.GET("/state", h.Conversation.GetState)
		documents.POST("/state", h.Conversation.SyncState)

		if h.Usage != nil {
			documents.GET("/usage", h.Usage.GetDocumentUsage)
		}
	}
}
