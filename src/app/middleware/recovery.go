package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"gptuessr/src/app/http/response"
	"gptuessr/src/infra/logger"
)

// Recovery turns a panic in a handler into a 500 with the standard error
// envelope. It must run before every other middleware.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := GetRequestID(c)
			logger.WithRequestID(log, requestID).Error("panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"subject_id", GetSubjectID(c),
				"stack", string(debug.Stack()),
			)
			if !c.Writer.Written() {
				response.InternalError(c, requestID)
			}
			c.Abort()
		}()
		c.Next()
	}
}
