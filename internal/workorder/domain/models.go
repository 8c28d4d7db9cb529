package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// WorkOrder is a repair job tracked for a tenant's customer.
type WorkOrder struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"column:tenant_id;not null;index:ix_work_orders_tenant" json:"tenant_id"`
	CustomerID  snowflake.ID `gorm:"column:customer_id" json:"customer_id"`
	StoreID     snowflake.ID `gorm:"column:store_id" json:"store_id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      string       `gorm:"type:text;not null;default:'open'" json:"status"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (WorkOrder) TableName() string { return "work_orders" }

func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
