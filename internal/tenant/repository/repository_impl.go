package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/fixkit/fixkit/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, plan_name, stripe_customer_id, stripe_subscription_id, active, created_at, updated_at
		 FROM tenants WHERE id = ?`,
		id,
	).Scan(&tenant).Error
	if err != nil {
		return nil, err
	}
	if tenant.ID == 0 {
		return nil, nil
	}
	return &tenant, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var exists bool
	err := db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE id = ? AND active = ?)`,
		id,
		true,
	).Scan(&exists).Error
	if err != nil {
		return false, err
	}
	return exists, nil
}
