package server

import (
	"net/http"

	"github.com/fixkit/fixkit/internal/tenantctx"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

const apiLimitExceededMessage = "You have reached your plan's monthly API call limit. Upgrade your plan to continue making API requests."

// APIUsageGate counts the request against the tenant's monthly API-call
// allowance and rejects it once the allowance is exhausted. The 429 body
// shape is a published contract; clients match on the "error" field.
func (s *Server) APIUsageGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
		if !ok || tenantID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()

		s.usageSvc.TrackEvent(ctx, usagedomain.TrackEventRequest{
			TenantID:  tenantID,
			EventType: usagedomain.EventAPICalls,
			Quantity:  1,
			Metadata: map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.FullPath(),
			},
		})

		report, err := s.usageSvc.Report(ctx, tenantID)
		if err != nil {
			// Reachable only under the closed failure policy.
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		if _, over := report.Overages[usagedomain.MetricAPICalls]; over {
			s.obsMetrics.RecordGateDenied()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "API rate limit exceeded",
				"message": apiLimitExceededMessage,
			})
			return
		}

		s.obsMetrics.RecordGateAllowed()
		c.Next()
	}
}
