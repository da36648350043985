package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/observability"
)

// Metrics records in-flight requests and per-route latency. Unmatched
// paths are reported as "unmatched" to bound label cardinality.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
