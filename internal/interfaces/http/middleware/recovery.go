package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docs-agent-api/pkg/errors"
	"docs-agent-api/pkg/logger"
)

// Recovery 捕获 panic，记录堆栈并返回统一的 500 错误体
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  errors.ErrInternalError.Message,
				"error":    gin.H{"error_code": string(errors.CodeInternalError)},
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
