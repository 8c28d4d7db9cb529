// Package domain contains the plan catalog models. Plans are billing tiers
// with per-resource ceilings; a nil ceiling means unlimited.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// Plan defines a named billing tier. The customer/inventory/employee/store
// ceilings live on the plan record itself; work-order, API-call and storage
// ceilings live on the companion PlanFeatureLimit record.
type Plan struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	Name              string       `json:"name" gorm:"type:text;not null;uniqueIndex"`
	DisplayName       string       `json:"display_name" gorm:"column:display_name;type:text;not null"`
	MonthlyPriceCents int64        `json:"monthly_price_cents" gorm:"column:monthly_price_cents;not null"`
	MaxCustomers      *int64       `json:"max_customers" gorm:"column:max_customers"`
	MaxInventoryItems *int64       `json:"max_inventory_items" gorm:"column:max_inventory_items"`
	MaxEmployees      *int64       `json:"max_employees" gorm:"column:max_employees"`
	MaxStores         *int64       `json:"max_stores" gorm:"column:max_stores"`
	Active            bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// PlanFeatureLimit holds the per-plan feature ceilings and allow-list.
type PlanFeatureLimit struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	PlanName        string         `gorm:"column:plan_name;type:text;not null;uniqueIndex"`
	MaxWorkOrders   *int64         `gorm:"column:max_work_orders"`
	MaxAPICalls     *int64         `gorm:"column:max_api_calls"`
	MaxStorageMB    *float64       `gorm:"column:max_storage_mb"`
	AllowedFeatures pq.StringArray `gorm:"column:allowed_features;type:text[]"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlanFeatureLimit) TableName() string { return "plan_feature_limits" }

// Limits is the resolved ceiling set for a plan. Nil means unlimited.
type Limits struct {
	MaxWorkOrders     *int64   `json:"max_work_orders"`
	MaxCustomers      *int64   `json:"max_customers"`
	MaxInventoryItems *int64   `json:"max_inventory_items"`
	MaxEmployees      *int64   `json:"max_employees"`
	MaxStores         *int64   `json:"max_stores"`
	MaxAPICalls       *int64   `json:"max_api_calls"`
	MaxStorageMB      *float64 `json:"max_storage_mb"`
	AllowedFeatures   []string `json:"allowed_features"`
}

// Unlimited returns a limit set with every ceiling nil and no features.
func Unlimited() Limits {
	return Limits{AllowedFeatures: []string{}}
}
