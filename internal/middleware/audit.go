package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/audit"
)

// AuditSink receives a copy of every admin action record.
type AuditSink interface {
	Write(ctx context.Context, rec *audit.Record) error
}

// auditResources maps route segments to the entity recorded in audit records.
var auditResources = map[string]string{
	"updates":       "update",
	"promotions":    "promotion",
	"media":         "media",
	"organizations": "organization",
	"users":         "user",
}

// AuditMiddleware records every mutating admin request as an "admin action" slog record
// once the handler has run, and forwards it to sink when one is given. Reads and
// preflights are not recorded.
func AuditMiddleware(sink AuditSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route := c.FullPath()
		status := c.Writer.Status()
		outcome := "success"
		if status >= 400 {
			outcome = "failure"
		}

		rec := &audit.Record{
			Timestamp:  time.Now().UTC(),
			Action:     c.Request.Method + " " + route,
			Resource:   auditResource(route),
			ResourceID: c.Param("id"),
			Outcome:    outcome,
			Status:     status,
			IP:         c.ClientIP(),
			RequestID:  GetRequestID(c),
		}

		attrs := []slog.Attr{
			slog.String("action", rec.Action),
			slog.String("resource", rec.Resource),
			slog.String("outcome", rec.Outcome),
			slog.Int("status", rec.Status),
			slog.String("ip", rec.IP),
			slog.String("request_id", rec.RequestID),
		}
		if rec.ResourceID != "" {
			attrs = append(attrs, slog.String("resource_id", rec.ResourceID))
		}
		slog.LogAttrs(c.Request.Context(), slog.LevelInfo, "admin action", attrs...)

		if sink != nil {
			// Sink failures are logged by the sink and never change the response.
			_ = sink.Write(context.WithoutCancel(c.Request.Context()), rec)
		}
	}
}

// auditResource returns the entity named by the first known segment of route.
func auditResource(route string) string {
	for _, seg := range strings.Split(route, "/") {
		if r, ok := auditResources[seg]; ok {
			return r
		}
	}
	return "other"
}
