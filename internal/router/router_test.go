package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/grievance"
	"github.com/noah-isme/grievance-api/internal/handler"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.IdentityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := service.NewIdentityService(service.IdentityConfig{Secret: "test-secret"})
	grievances := service.NewGrievanceService(nil, nil, nil)
	metrics := service.NewMetricsService()

	r := New(Options{
		APIPrefix:  "/api/v1",
		Metrics:    metrics,
		Validator:  identity,
		Grievances: handler.NewGrievanceHandler(grievances, nil),
		Taxonomy:   handler.NewTaxonomyHandler(grievances),
		Probes:     handler.NewMetricsHandler(metrics, nil, nil),
	})
	return r, identity
}

func bearer(t *testing.T, identity *service.IdentityService, actor models.Actor) string {
	t.Helper()
	token, _, err := identity.IssueToken(actor, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterProbesArePublic(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

func TestRouterRequiresToken(t *testing.T) {
	r, identity := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/taxonomy", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/taxonomy", nil)
	req.Header.Set("Authorization", bearer(t, identity, models.Actor{ID: "s-1", Role: models.RoleStudent}))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterReviewerRoutes(t *testing.T) {
	r, identity := newTestRouter(t)
	student := bearer(t, identity, models.Actor{ID: "s-1", Role: models.RoleStudent})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/grievances/stats"},
		{http.MethodGet, "/api/v1/grievances/export"},
		{http.MethodPost, "/api/v1/grievances/GRV-1/transition"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", student)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}
}

func TestRouterDocsDisabledByDefault(t *testing.T) {
	r, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/docs/index.html", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterServesEverySchema(t *testing.T) {
	r, identity := newTestRouter(t)
	token := bearer(t, identity, models.Actor{ID: "s-1", Role: models.RoleStudent})
	registry := grievance.DefaultRegistry()

	get := func(path string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	count := 0
	for _, category := range registry.Categories() {
		for _, sub := range registry.SubCategoriesFor(category) {
			count++
			escaped := "/api/v1/taxonomy/" + string(category) + "/" + url.PathEscape(sub)
			assert.Equal(t, http.StatusOK, get(escaped), escaped)

			plain := "/api/v1/taxonomy/" + string(category) + "/" + (&url.URL{Path: sub}).EscapedPath()
			assert.Equal(t, http.StatusOK, get(plain), plain)
		}
	}
	assert.Equal(t, 23, count)

	assert.Equal(t, http.StatusBadRequest, get("/api/v1/taxonomy/academic/Football"))
}
