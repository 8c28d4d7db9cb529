package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
)

// TrackEventRequest records one tracked action. Quantity defaults to 1 when
// not positive.
type TrackEventRequest struct {
	TenantID  snowflake.ID   `json:"tenant_id"`
	EventType string         `json:"event_type"`
	Quantity  int64          `json:"quantity"`
	Metadata  map[string]any `json:"metadata"`
}

// Service is the usage report engine. Metric and limit retrieval honor the
// configured failure policy: under the open policy lookup failures degrade
// to zero metrics / unlimited limits instead of propagating.
type Service interface {
	// TrackEvent appends a usage event and increments the monthly summary.
	// Best-effort telemetry: failures are logged, never surfaced, so the
	// caller's primary operation cannot be broken by tracking.
	TrackEvent(ctx context.Context, req TrackEventRequest)

	// CurrentMetrics gathers the per-tenant usage snapshot. The seven
	// lookups are issued concurrently and joined.
	CurrentMetrics(ctx context.Context, tenantID snowflake.ID) (Metrics, error)

	// PlanLimits resolves the tenant's active ceiling set.
	PlanLimits(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error)

	// Report composes CurrentMetrics and PlanLimits into the derived report.
	Report(ctx context.Context, tenantID snowflake.ID) (Report, error)

	// RecommendPlan returns the cheapest active plan accommodating the
	// tenant's customer/inventory/employee/store usage, the most expensive
	// active plan when none fits, or "" when no active plans exist or a
	// lookup fails.
	RecommendPlan(ctx context.Context, tenantID snowflake.ID) (string, error)

	// SyncBilling reports current metric values to the billing provider for
	// the tenant's metered subscription items. Fire-and-forget: failures are
	// logged and swallowed.
	SyncBilling(ctx context.Context, tenantID snowflake.ID)
}

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrMetricsLookup    = errors.New("metrics_lookup_failed")
	ErrLimitsLookup     = errors.New("limits_lookup_failed")
)
