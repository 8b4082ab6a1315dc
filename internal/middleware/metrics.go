package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-skill-api/internal/service"
	"github.com/noah-isme/classroom-skill-api/pkg/logger"
)

// Metrics records route-labelled HTTP metrics and, for skill directives, a
// per-namespace outcome counter. Unmatched routes share one label so that
// probes cannot blow up series cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, time.Since(start))
		if ns := c.GetString(logger.NamespaceKey); ns != "" {
			metricsSvc.ObserveDirective(ns, status)
		}
	}
}
