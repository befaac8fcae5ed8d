package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per service and route template.
func Metrics(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method
		duration := time.Since(start).Seconds()

		metrics.HTTPRequestDuration.WithLabelValues(service, method, path, status).Observe(duration)
		metrics.HTTPRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	}
}
