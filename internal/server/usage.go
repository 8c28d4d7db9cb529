package server

import (
	"net/http"
	"strings"

	"github.com/fixkit/fixkit/internal/tenantctx"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

type trackEventRequest struct {
	EventType string                 `json:"event_type"`
	Quantity  int64                  `json:"quantity"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// TrackUsageEvent accepts a usage event and always returns 202. Recording is
// best-effort; delivery problems surface in logs and counters, never to the
// caller.
func (s *Server) TrackUsageEvent(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok || tenantID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req trackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if eventType := strings.TrimSpace(req.EventType); eventType != "" {
		c.Set("event_type", eventType)
	}

	s.usageSvc.TrackEvent(c.Request.Context(), usagedomain.TrackEventRequest{
		TenantID:  tenantID,
		EventType: req.EventType,
		Quantity:  req.Quantity,
		Metadata:  req.Metadata,
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) GetUsageMetrics(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok || tenantID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	metrics, err := s.usageSvc.CurrentMetrics(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}

func (s *Server) GetUsageLimits(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok || tenantID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limits, err := s.usageSvc.PlanLimits(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, limits)
}

func (s *Server) GetUsageReport(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok || tenantID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	report, err := s.usageSvc.Report(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetRecommendedPlan(c *gin.Context) {
	tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
	if !ok || tenantID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	name, err := s.usageSvc.RecommendPlan(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if name == "" {
		c.JSON(http.StatusOK, gin.H{"recommended_plan": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommended_plan": name})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
