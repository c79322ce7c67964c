package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/api/handler"
	"classpad/internal/service"
	"classpad/pkg/metrics"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := &config.Config{}
	cfg.Storage.Driver = "local"
	cfg.Storage.Local.Dir = t.TempDir()
	cfg.Storage.Local.PublicURL = "http://localhost:8080/files"

	return Setup(cfg, Deps{
		Handler:  handler.NewHandler(&service.Service{}),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Logger:   zap.NewNop(),
	})
}

func TestSetup_Routes(t *testing.T) {
	r := setupTestRouter(t)

	registered := map[string]bool{}
	for _, ri := range r.Routes() {
		registered[ri.Method+" "+ri.Path] = true
	}

	want := []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/oauth/:provider",
		"GET /api/v1/auth/me",
		"PUT /api/v1/users/:id/active",
		"POST /api/v1/courses/join",
		"POST /api/v1/courses/:id/students/import",
		"PUT /api/v1/courses/:id/units/order",
		"GET /api/v1/courses/:id/calendar.ics",
		"PUT /api/v1/units/:id/publish",
		"DELETE /api/v1/assignments/:id/attachments/:attachmentId",
		"PUT /api/v1/assignments/:id/submission",
		"POST /api/v1/assignments/:id/submit",
		"PUT /api/v1/submissions/:id/grade",
		"POST /api/v1/attendance/scan",
		"PUT /api/v1/attendance/sessions/:id/records",
		"DELETE /api/v1/comments/:id",
		"PUT /api/v1/notifications/read-all",
		"GET /health",
		"GET /metrics",
		"GET /files/*filepath",
	}
	for _, route := range want {
		assert.True(t, registered[route], "缺少路由 %s", route)
	}
}

func TestSetup_HealthAndMetrics(t *testing.T) {
	r := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "classpad_http_requests_total")
}

func TestSetup_ProtectedRequiresToken(t *testing.T) {
	r := setupTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/courses", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHENTICATED")
}

func TestUploadsPath(t *testing.T) {
	assert.Equal(t, "/uploads", uploadsPath("http://localhost:8080/uploads"))
	assert.Equal(t, "/static/files", uploadsPath("https://cdn.example.com/static/files"))
	assert.Equal(t, "/uploads", uploadsPath("http://localhost:8080"))
	assert.Equal(t, "/uploads", uploadsPath("://bad"))
}
