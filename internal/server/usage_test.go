package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/tenantctx"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newUsageTestServer(t *testing.T, usageSvc usagedomain.Service, tenantID snowflake.ID) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	if tenantID != 0 {
		engine.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), tenantID))
			c.Next()
		})
	}

	srv := &Server{engine: engine, usageSvc: usageSvc}
	engine.POST("/api/usage/events", srv.TrackUsageEvent)
	engine.GET("/api/usage/metrics", srv.GetUsageMetrics)
	engine.GET("/api/usage/recommended-plan", srv.GetRecommendedPlan)

	return engine
}

func TestTrackUsageEventAccepted(t *testing.T) {
	node := mustTestNode(t)
	tenantID := node.Generate()
	usageSvc := &fakeUsageService{}
	engine := newUsageTestServer(t, usageSvc, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/usage/events",
		strings.NewReader(`{"event_type":"api_calls","quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.JSONEq(t, `{"status":"accepted"}`, w.Body.String())

	calls := usageSvc.TrackCalls()
	require.Len(t, calls, 1)
	require.Equal(t, tenantID, calls[0].TenantID)
	require.Equal(t, usagedomain.EventAPICalls, calls[0].EventType)
	require.Equal(t, int64(3), calls[0].Quantity)
}

func TestTrackUsageEventRejectsMalformedBody(t *testing.T) {
	node := mustTestNode(t)
	usageSvc := &fakeUsageService{}
	engine := newUsageTestServer(t, usageSvc, node.Generate())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/usage/events", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, usageSvc.TrackCalls())
}

func TestTrackUsageEventRequiresTenant(t *testing.T) {
	usageSvc := &fakeUsageService{}
	engine := newUsageTestServer(t, usageSvc, 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/usage/events",
		strings.NewReader(`{"event_type":"api_calls"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, usageSvc.TrackCalls())
}

func TestGetUsageMetrics(t *testing.T) {
	node := mustTestNode(t)
	usageSvc := &fakeUsageService{metrics: usagedomain.Metrics{
		WorkOrders: 6,
		Customers:  2,
		APICalls:   120,
	}}
	engine := newUsageTestServer(t, usageSvc, node.Generate())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var metrics usagedomain.Metrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	require.Equal(t, int64(6), metrics.WorkOrders)
	require.Equal(t, int64(120), metrics.APICalls)
}

func TestGetRecommendedPlan(t *testing.T) {
	node := mustTestNode(t)

	engine := newUsageTestServer(t, &fakeUsageService{recommended: "professional"}, node.Generate())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/recommended-plan", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"recommended_plan":"professional"}`, w.Body.String())

	engine = newUsageTestServer(t, &fakeUsageService{}, node.Generate())
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage/recommended-plan", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"recommended_plan":null}`, w.Body.String())
}
