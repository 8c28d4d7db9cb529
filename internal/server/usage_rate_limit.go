package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/fixkit/fixkit/internal/tenantctx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitReasonTenantRate       = "tenant-rate"
	rateLimitReasonEventConcurrency = "tenant-event-concurrency"
)

type usageIngestRateLimitKey struct {
	EventType string `json:"event_type"`
}

// UsageIngestRateLimit throttles the raw ingest endpoint. This is transport
// protection for the event log, independent of the plan-limit gate.
func (s *Server) UsageIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.usageLimiter == nil || !s.usageLimiter.Enabled() {
			c.Next()
			return
		}

		tenantID, ok := tenantctx.TenantIDFromContext(c.Request.Context())
		if !ok || tenantID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()

		allowed, err := s.usageLimiter.AllowTenant(ctx, tenantID.String())
		if err != nil {
			zap.L().Warn("usage ingest tenant rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			s.denyUsageIngestRateLimit(c, rateLimitReasonTenantRate)
			return
		}

		eventType, err := readUsageIngestKey(c)
		if err != nil {
			zap.L().Warn("usage ingest rate limit read body failed", zap.Error(err))
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		if eventType != "" {
			lockToken, allowed, err := s.usageLimiter.TryLockTenantEvent(ctx, tenantID.String(), eventType)
			if err != nil {
				zap.L().Warn("usage ingest concurrency lock failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !allowed {
				s.denyUsageIngestRateLimit(c, rateLimitReasonEventConcurrency)
				return
			}
			defer func() {
				if err := s.usageLimiter.ReleaseTenantEvent(ctx, tenantID.String(), eventType, lockToken); err != nil {
					zap.L().Warn("usage ingest concurrency unlock failed", zap.Error(err))
				}
			}()
		}

		c.Next()
	}
}

func (s *Server) denyUsageIngestRateLimit(c *gin.Context, reason string) {
	zap.L().Warn("usage ingest rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", normalizeRateLimitEndpoint(c)),
	)

	c.Header("Retry-After", "1")
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func readUsageIngestKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload usageIngestRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	return strings.TrimSpace(payload.EventType), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
