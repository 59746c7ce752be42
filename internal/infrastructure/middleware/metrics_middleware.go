package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is satisfied by monitoring.PrometheusCollector
type HTTPMetrics interface {
	HTTPRequestStarted()
	HTTPRequestFinished()
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

func MetricsMiddleware(metrics HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestStarted()
		defer metrics.HTTPRequestFinished()

		start := time.Now()
		c.Next()

		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
