package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trainerbook/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route template.
// Unmatched paths share one label.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
