package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Plan, error)
	FindFeatureLimits(ctx context.Context, db *gorm.DB, planName string) (*PlanFeatureLimit, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]Plan, error)
}
