package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	tenantdomain "github.com/fixkit/fixkit/internal/tenant/domain"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	defaultTenantName = "Main Street Repair"
	defaultPlanName   = "starter"
)

type planSeed struct {
	name              string
	displayName       string
	monthlyPriceCents int64
	maxWorkOrders     *int64
	maxCustomers      *int64
	maxInventoryItems *int64
	maxEmployees      *int64
	maxStores         *int64
	maxAPICalls       *int64
	maxStorageMB      *float64
	allowedFeatures   []string
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func defaultPlans() []planSeed {
	return []planSeed{
		{
			name:              "starter",
			displayName:       "Starter",
			monthlyPriceCents: 0,
			maxWorkOrders:     i64(50),
			maxCustomers:      i64(100),
			maxInventoryItems: i64(200),
			maxEmployees:      i64(3),
			maxStores:         i64(1),
			maxAPICalls:       i64(10000),
			maxStorageMB:      f64(512),
			allowedFeatures:   []string{"work_orders", "customers"},
		},
		{
			name:              "professional",
			displayName:       "Professional",
			monthlyPriceCents: 4900,
			maxWorkOrders:     i64(500),
			maxCustomers:      i64(2000),
			maxInventoryItems: i64(5000),
			maxEmployees:      i64(15),
			maxStores:         i64(3),
			maxAPICalls:       i64(100000),
			maxStorageMB:      f64(10240),
			allowedFeatures:   []string{"work_orders", "customers", "reports", "api_access"},
		},
		{
			name:              "enterprise",
			displayName:       "Enterprise",
			monthlyPriceCents: 19900,
			allowedFeatures:   []string{"work_orders", "customers", "reports", "api_access", "priority_support"},
		},
	}
}

// EnsureDefaultPlans seeds the plan catalog for startup bootstrap. Existing
// rows are left untouched so operators can tune ceilings in place.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range defaultPlans() {
			if err := ensurePlanTx(ctx, tx, node, seed); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, seed planSeed) error {
	var plan plandomain.Plan
	err := tx.WithContext(ctx).
		Where("name = ?", seed.name).
		First(&plan).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		plan = plandomain.Plan{
			ID:                node.Generate(),
			Name:              seed.name,
			DisplayName:       seed.displayName,
			MonthlyPriceCents: seed.monthlyPriceCents,
			MaxCustomers:      seed.maxCustomers,
			MaxInventoryItems: seed.maxInventoryItems,
			MaxEmployees:      seed.maxEmployees,
			MaxStores:         seed.maxStores,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}

	var limits plandomain.PlanFeatureLimit
	err = tx.WithContext(ctx).
		Where("plan_name = ?", seed.name).
		First(&limits).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now().UTC()
		limits = plandomain.PlanFeatureLimit{
			ID:              node.Generate(),
			PlanName:        seed.name,
			MaxWorkOrders:   seed.maxWorkOrders,
			MaxAPICalls:     seed.maxAPICalls,
			MaxStorageMB:    seed.maxStorageMB,
			AllowedFeatures: pq.StringArray(seed.allowedFeatures),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.WithContext(ctx).Create(&limits).Error; err != nil {
			return err
		}
	}

	return nil
}

// EnsureMainTenant seeds the default tenant for OSS mode.
func EnsureMainTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant tenantdomain.Tenant
		err := tx.WithContext(ctx).
			Where("name = ?", defaultTenantName).
			First(&tenant).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		tenant = tenantdomain.Tenant{
			ID:        node.Generate(),
			Name:      defaultTenantName,
			PlanName:  defaultPlanName,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&tenant).Error
	})
}
