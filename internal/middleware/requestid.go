package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextRequestIDKey is where the request id lives in the gin context.
	ContextRequestIDKey = "request_id"
	// HeaderRequestID is echoed on every response.
	HeaderRequestID = "X-Request-ID"
)

// RequestIDMiddleware tags each request with a uuid so log lines and
// error responses can be correlated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestID returns the id assigned by RequestIDMiddleware, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}
