// Package domain contains the usage metering models: the append-only event
// log, the monthly pre-aggregation, and the derived report types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	"gorm.io/datatypes"
)

// Well-known event types. Feature invocations use the "feature_" prefix
// followed by the feature name.
const (
	EventAPICalls       = "api_calls"
	EventWorkOrders     = "work_orders"
	EventCustomers      = "customers"
	EventInventoryItems = "inventory_items"
	FeatureEventPrefix  = "feature_"
)

// Metric names as they appear in report percentages, overages and warnings.
const (
	MetricWorkOrders     = "workOrders"
	MetricCustomers      = "customers"
	MetricInventoryItems = "inventoryItems"
	MetricEmployees      = "employees"
	MetricStores         = "stores"
	MetricAPICalls       = "apiCalls"
	MetricStorageUsedMB  = "storageUsedMB"
)

// MetricOrder is the fixed evaluation order of report metrics. Warning
// ordering follows it and is part of the API contract.
var MetricOrder = []string{
	MetricWorkOrders,
	MetricCustomers,
	MetricInventoryItems,
	MetricEmployees,
	MetricStores,
	MetricAPICalls,
	MetricStorageUsedMB,
}

// UsageEvent is an append-only fact recording one tracked action. Events are
// never mutated or deleted; they are the audit trail and billing evidence.
type UsageEvent struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID      `json:"tenant_id" gorm:"column:tenant_id;not null;index:ix_usage_events_tenant_recorded,priority:1"`
	EventType  string            `json:"event_type" gorm:"column:event_type;type:text;not null"`
	Quantity   int64             `json:"quantity" gorm:"not null;default:1"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	RecordedAt time.Time         `json:"recorded_at" gorm:"column:recorded_at;not null;index:ix_usage_events_tenant_recorded,priority:2"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageEvent) TableName() string { return "usage_events" }

// UsageSummary pre-aggregates event quantities per tenant and calendar
// month so monthly totals never require re-scanning the event log. Created
// lazily on the first event of a month, incremented afterwards.
type UsageSummary struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	TenantID  snowflake.ID      `json:"tenant_id" gorm:"column:tenant_id;not null;uniqueIndex:ux_usage_summaries_tenant_month,priority:1"`
	Year      int               `json:"year" gorm:"not null;uniqueIndex:ux_usage_summaries_tenant_month,priority:2"`
	Month     int               `json:"month" gorm:"not null;uniqueIndex:ux_usage_summaries_tenant_month,priority:3"`
	Counters  datatypes.JSONMap `json:"counters" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageSummary) TableName() string { return "usage_summaries" }

// Counter reads one accumulated quantity from the summary counters.
func (s *UsageSummary) Counter(eventType string) int64 {
	if s == nil || s.Counters == nil {
		return 0
	}
	switch v := s.Counters[eventType].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Metrics is the per-tenant usage snapshot, recomputed on demand from the
// authoritative source tables.
type Metrics struct {
	WorkOrders     int64            `json:"work_orders"`
	Customers      int64            `json:"customers"`
	InventoryItems int64            `json:"inventory_items"`
	Employees      int64            `json:"employees"`
	Stores         int64            `json:"stores"`
	APICalls       int64            `json:"api_calls"`
	StorageUsedMB  float64          `json:"storage_used_mb"`
	FeatureUsage   map[string]int64 `json:"feature_usage"`
}

// Report is the derived usage report computed per request. Percentages only
// contain metrics with a finite limit; Overages only metrics strictly over
// their limit. IsOverLimit is true iff Overages is non-empty.
type Report struct {
	Metrics     Metrics            `json:"metrics"`
	Limits      plandomain.Limits  `json:"limits"`
	Percentages map[string]float64 `json:"percentages"`
	Overages    map[string]float64 `json:"overages"`
	Warnings    []string           `json:"warnings"`
	IsOverLimit bool               `json:"is_over_limit"`
}
