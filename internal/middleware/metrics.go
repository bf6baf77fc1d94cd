// Package middleware provides the Gin middleware of the admin console: request IDs,
// metrics, request logging, security headers, CORS, rate limiting, the session guard and
// the admin action audit trail.
//
// Ordering is fixed in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → RateLimit → RequireSession → Audit → Handler
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/telemetry"
)

// noRoute is the path label for requests that matched no route.
const noRoute = "<no-route>"

// MetricsMiddleware records http_requests_total and http_request_duration_seconds for
// every request. The path label is the Gin route template from c.FullPath() so ids in
// URLs never become label values.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRoute
		}
		method := c.Request.Method

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
