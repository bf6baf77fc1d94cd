package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin-console/admin-console/internal/audit"
)

type memSink struct{ recs []*audit.Record }

func (m *memSink) Write(_ context.Context, rec *audit.Record) error {
	m.recs = append(m.recs, rec)
	return nil
}

func newAuditRouter(sink AuditSink) *gin.Engine {
	r := gin.New()
	r.Use(AuditMiddleware(sink))
	admin := r.Group("/api/v1/admin")
	admin.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.DELETE("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	admin.POST("/updates/:id/end", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r
}

func TestAuditMiddleware_RecordsMutations(t *testing.T) {
	buf := captureLogs(t)

	w := httptest.NewRecorder()
	newAuditRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u-1", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "admin action", rec["msg"])
	assert.Equal(t, "DELETE /api/v1/admin/users/:id", rec["action"])
	assert.Equal(t, "user", rec["resource"])
	assert.Equal(t, "u-1", rec["resource_id"])
	assert.Equal(t, "success", rec["outcome"])
}

func TestAuditMiddleware_RecordsFailures(t *testing.T) {
	buf := captureLogs(t)

	newAuditRouter(nil).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/updates/x/end", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "update", rec["resource"])
	assert.Equal(t, "failure", rec["outcome"])
	assert.Equal(t, float64(http.StatusNotFound), rec["status"])
}

func TestAuditMiddleware_SkipsReads(t *testing.T) {
	buf := captureLogs(t)

	sink := &memSink{}
	newAuditRouter(sink).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	assert.False(t, strings.Contains(buf.String(), "admin action"))
	assert.Empty(t, sink.recs)
}

func TestAuditMiddleware_ForwardsToSink(t *testing.T) {
	captureLogs(t)
	sink := &memSink{}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u-9", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r := gin.New()
	r.Use(RequestIDMiddleware(), AuditMiddleware(sink))
	r.DELETE("/api/v1/admin/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sink.recs, 1)
	rec := sink.recs[0]
	assert.Equal(t, "DELETE /api/v1/admin/users/:id", rec.Action)
	assert.Equal(t, "user", rec.Resource)
	assert.Equal(t, "u-9", rec.ResourceID)
	assert.Equal(t, http.StatusNoContent, rec.Status)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestAuditResource(t *testing.T) {
	tests := map[string]string{
		"/api/v1/admin/organizations/:id/verification": "organization",
		"/api/v1/admin/promotions":                     "promotion",
		"/api/v1/admin/media/images":                   "media",
		"/api/v1/session/login":                        "other",
	}
	for route, want := range tests {
		assert.Equal(t, want, auditResource(route), route)
	}
}
