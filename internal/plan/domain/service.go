package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the plan catalog consumed by the usage engine.
type Service interface {
	// PlanNameForTenant resolves the tenant's current plan name.
	PlanNameForTenant(ctx context.Context, tenantID snowflake.ID) (string, error)
	// LimitsByPlanName resolves the full ceiling set for a plan.
	LimitsByPlanName(ctx context.Context, name string) (Limits, error)
	// ListActive returns active plans ordered by ascending monthly price.
	ListActive(ctx context.Context) ([]Plan, error)
}

var (
	ErrPlanNotFound   = errors.New("plan_not_found")
	ErrTenantNotFound = errors.New("tenant_not_found")
	ErrInvalidName    = errors.New("invalid_plan_name")
)
