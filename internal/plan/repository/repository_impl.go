package repository

import (
	"context"
	"errors"

	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindFeatureLimits(ctx context.Context, db *gorm.DB, planName string) (*plandomain.PlanFeatureLimit, error) {
	var limits plandomain.PlanFeatureLimit
	err := db.WithContext(ctx).
		Where("plan_name = ?", planName).
		First(&limits).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &limits, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]plandomain.Plan, error) {
	var plans []plandomain.Plan
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("monthly_price_cents ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}
