package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"voice-intake-api/internal/infrastructure/metrics"
)

// Metrics records request counts and latency per route template.
// Unmatched paths are grouped so the route label stays bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
