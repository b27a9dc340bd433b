package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cortex-backend/internal/observability"
)

// Metrics records request counts and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status()/100) + "xx"
		observability.HTTPRequests.WithLabelValues(method, route, status).Inc()
		observability.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
