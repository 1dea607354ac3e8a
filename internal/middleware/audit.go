package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/huangang/projecthub/internal/services"
)

const HeaderRequestID = "X-Request-ID"

// AuditContext attaches the client address and user agent to the request
// context so audit rows written further down can record them. It also
// assigns a request id when the caller did not send one.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Set("request_id", requestID)

		ctx := services.WithClientInfo(c.Request.Context(), services.ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: truncate(c.Request.UserAgent(), 500),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
