package respond

import (
	"github.com/gin-gonic/gin"

	"dream-backend/internal/shared/telemetry"
)

// ErrorResponse is the standardized error body: a human readable message and
// a machine readable code.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if ip := c.ClientIP(); ip != "" {
		fields["client_ip"] = ip
	}
	telemetry.Error("http.error", fields)

	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
