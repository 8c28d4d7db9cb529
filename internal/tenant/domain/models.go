// Package domain contains persistence models for tenants and the
// tenant-scoped entities whose row counts feed usage metering.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is a customer organization (repair shop). Data and usage are
// isolated per tenant.
type Tenant struct {
	ID                   snowflake.ID `json:"id" gorm:"primaryKey"`
	Name                 string       `json:"name" gorm:"type:text;not null"`
	PlanName             string       `json:"plan_name" gorm:"column:plan_name;type:text;not null"`
	StripeCustomerID     string       `json:"-" gorm:"column:stripe_customer_id;type:text"`
	StripeSubscriptionID string       `json:"-" gorm:"column:stripe_subscription_id;type:text"`
	Active               bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt            time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// Customer is an end customer of a repair shop.
type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Name      string       `gorm:"type:text;not null"`
	Email     string       `gorm:"type:text"`
	Phone     string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }

// InventoryItem is a stocked part or product.
type InventoryItem struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	SKU       string       `gorm:"column:sku;type:text;not null"`
	Name      string       `gorm:"type:text;not null"`
	Quantity  int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// Employee is a staff member of a tenant.
type Employee struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Name      string       `gorm:"type:text;not null"`
	Email     string       `gorm:"type:text"`
	Role      string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Employee) TableName() string { return "employees" }

// Store is a physical shop location.
type Store struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Name      string       `gorm:"type:text;not null"`
	Address   string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Store) TableName() string { return "stores" }

// StorageObject records an uploaded file's size for storage metering.
type StorageObject struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  snowflake.ID `gorm:"column:tenant_id;not null;index"`
	Key       string       `gorm:"type:text;not null"`
	SizeMB    float64      `gorm:"column:size_mb;not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StorageObject) TableName() string { return "storage_objects" }
