package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/pkg/metrics"
)

// MetricsMiddleware records request count, latency and in-flight gauge per
// route template. Ops endpoints are not counted.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	skip := pathSet(opsPaths)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()
		c.Next()

		// unmatched paths share one series
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the service registry in Prometheus text format
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
