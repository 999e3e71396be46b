package middleware

import (
	"basegraph.app/intake/common/logger"
	"github.com/gin-gonic/gin"
)

// TraceHeader echoes the request's trace id in the named response header so
// reporters can quote it when something goes wrong.
func TraceHeader(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if traceID := logger.TraceID(c.Request.Context()); traceID != "" {
			c.Header(name, traceID)
		}
		c.Next()
	}
}
