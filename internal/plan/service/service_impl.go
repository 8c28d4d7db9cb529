package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	tenantdomain "github.com/fixkit/fixkit/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	PlanRepo   plandomain.Repository
	TenantRepo tenantdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	planRepo   plandomain.Repository
	tenantRepo tenantdomain.Repository
}

func New(p ServiceParam) plandomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("plan.service"),
		planRepo:   p.PlanRepo,
		tenantRepo: p.TenantRepo,
	}
}

func (s *Service) PlanNameForTenant(ctx context.Context, tenantID snowflake.ID) (string, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return "", err
	}
	if tenant == nil {
		return "", plandomain.ErrTenantNotFound
	}
	return tenant.PlanName, nil
}

func (s *Service) LimitsByPlanName(ctx context.Context, name string) (plandomain.Limits, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return plandomain.Limits{}, plandomain.ErrInvalidName
	}

	plan, err := s.planRepo.FindByName(ctx, s.db, name)
	if err != nil {
		return plandomain.Limits{}, err
	}
	if plan == nil {
		return plandomain.Limits{}, plandomain.ErrPlanNotFound
	}

	limits := plandomain.Limits{
		MaxCustomers:      plan.MaxCustomers,
		MaxInventoryItems: plan.MaxInventoryItems,
		MaxEmployees:      plan.MaxEmployees,
		MaxStores:         plan.MaxStores,
		AllowedFeatures:   []string{},
	}

	// Work-order, API and storage ceilings plus the feature allow-list live
	// on the companion record. A missing record leaves those unlimited.
	features, err := s.planRepo.FindFeatureLimits(ctx, s.db, name)
	if err != nil {
		return plandomain.Limits{}, err
	}
	if features != nil {
		limits.MaxWorkOrders = features.MaxWorkOrders
		limits.MaxAPICalls = features.MaxAPICalls
		limits.MaxStorageMB = features.MaxStorageMB
		if len(features.AllowedFeatures) > 0 {
			limits.AllowedFeatures = append(limits.AllowedFeatures, features.AllowedFeatures...)
		}
	}

	return limits, nil
}

func (s *Service) ListActive(ctx context.Context) ([]plandomain.Plan, error) {
	return s.planRepo.ListActive(ctx, s.db)
}
