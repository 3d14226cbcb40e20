// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/errors"
	"z-novel-context-svc/pkg/logger"
)

// Recovery Panic 恢复中间件,响应结构与业务错误保持一致
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())

				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", err),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Code:    http.StatusInternalServerError,
					Message: "internal server error",
					Error: &dto.ErrorDetail{
						ErrorCode: string(errors.CodeInternalError),
					},
					TraceID: c.GetString("trace_id"),
				})
			}
		}()

		c.Next()
	}
}
