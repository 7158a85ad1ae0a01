package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dream-backend/internal/shared/server/respond"
	"dream-backend/internal/shared/telemetry"
)

const errorCodeInternal = "INTERNAL"

// Recovery recovers from panics and returns a standardized error response.
// Nothing is written when the response has already started.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				if c.Writer.Written() {
					c.Abort()
					return
				}
				respond.Error(c, http.StatusInternalServerError, errorCodeInternal, "Unexpected server error", nil)
			}
		}()
		c.Next()
	}
}
