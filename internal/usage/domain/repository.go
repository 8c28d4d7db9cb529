package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MetricsStore answers the count and aggregate queries the engine fans out
// over. All queries are tenant-scoped.
type MetricsStore interface {
	CountWorkOrders(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountCustomers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountInventoryItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountEmployees(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	CountStores(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
	StorageUsedMB(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (float64, error)
	MonthlySummary(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year, month int) (*UsageSummary, error)
	FeatureUsageSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time) (map[string]int64, error)
}

// EventStore persists the append-only event log and the monthly summary.
type EventStore interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *UsageEvent) error
	// IncrementSummary adds quantity to the (tenant, year, month, eventType)
	// counter, creating the summary row when absent.
	IncrementSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, tenantID snowflake.ID, year, month int, eventType string, quantity int64, now time.Time) error
	// RebuildSummary recomputes the (tenant, year, month) counters from the
	// event log. Used by the reconciliation worker.
	RebuildSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, tenantID snowflake.ID, year, month int, now time.Time) error
	// TenantsWithEvents lists tenants that recorded events in the window.
	TenantsWithEvents(ctx context.Context, db *gorm.DB, from, to time.Time, limit int) ([]snowflake.ID, error)
}
