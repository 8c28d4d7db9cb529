package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type metricsStore struct{}

func ProvideMetricsStore() usagedomain.MetricsStore {
	return &metricsStore{}
}

func (r *metricsStore) CountWorkOrders(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	return countRows(ctx, db, "work_orders", tenantID)
}

func (r *metricsStore) CountCustomers(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	return countRows(ctx, db, "customers", tenantID)
}

func (r *metricsStore) CountInventoryItems(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	return countRows(ctx, db, "inventory_items", tenantID)
}

func (r *metricsStore) CountEmployees(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	return countRows(ctx, db, "employees", tenantID)
}

func (r *metricsStore) CountStores(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	return countRows(ctx, db, "stores", tenantID)
}

func countRows(ctx context.Context, db *gorm.DB, table string, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM `+table+` WHERE tenant_id = ?`,
		tenantID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *metricsStore) StorageUsedMB(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(size_mb), 0) FROM storage_objects WHERE tenant_id = ?`,
		tenantID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *metricsStore) MonthlySummary(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, year, month int) (*usagedomain.UsageSummary, error) {
	var summary usagedomain.UsageSummary
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (r *metricsStore) FeatureUsageSince(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, since time.Time) (map[string]int64, error) {
	var rows []struct {
		EventType string `gorm:"column:event_type"`
		Total     int64  `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT event_type, COALESCE(SUM(quantity), 0) AS total
		 FROM usage_events
		 WHERE tenant_id = ? AND recorded_at >= ? AND event_type LIKE ?
		 GROUP BY event_type`,
		tenantID,
		since,
		usagedomain.FeatureEventPrefix+"%",
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	usage := make(map[string]int64, len(rows))
	for _, row := range rows {
		name := strings.TrimPrefix(row.EventType, usagedomain.FeatureEventPrefix)
		if name == "" {
			continue
		}
		usage[name] = row.Total
	}
	return usage, nil
}

type eventStore struct{}

func ProvideEventStore() usagedomain.EventStore {
	return &eventStore{}
}

func (r *eventStore) InsertEvent(ctx context.Context, db *gorm.DB, event *usagedomain.UsageEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *eventStore) IncrementSummary(
	ctx context.Context,
	db *gorm.DB,
	id snowflake.ID,
	tenantID snowflake.ID,
	year, month int,
	eventType string,
	quantity int64,
	now time.Time,
) error {
	// On postgres the increment is a single atomic upsert: two concurrent
	// writers both land their quantity instead of one overwriting the other.
	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec(
			`INSERT INTO usage_summaries (id, tenant_id, year, month, counters, created_at, updated_at)
			 VALUES (?, ?, ?, ?, jsonb_build_object(?::text, ?::bigint), ?, ?)
			 ON CONFLICT (tenant_id, year, month) DO UPDATE
			 SET counters = jsonb_set(
					COALESCE(usage_summaries.counters, '{}'::jsonb),
					ARRAY[?::text],
					to_jsonb(COALESCE((usage_summaries.counters ->> ?::text)::bigint, 0) + ?::bigint)
				),
				updated_at = EXCLUDED.updated_at`,
			id, tenantID, year, month, eventType, quantity, now, now,
			eventType, eventType, quantity,
		).Error
	}

	// Other dialects lack a jsonb increment; fall back to a transactional
	// read-modify-write.
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var summary usagedomain.UsageSummary
		err := tx.Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
			First(&summary).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			summary = usagedomain.UsageSummary{
				ID:        id,
				TenantID:  tenantID,
				Year:      year,
				Month:     month,
				Counters:  datatypes.JSONMap{eventType: quantity},
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(&summary).Error
		}

		if summary.Counters == nil {
			summary.Counters = datatypes.JSONMap{}
		}
		summary.Counters[eventType] = summary.Counter(eventType) + quantity

		return tx.Model(&usagedomain.UsageSummary{}).
			Where("id = ?", summary.ID).
			Updates(map[string]any{
				"counters":   summary.Counters,
				"updated_at": now,
			}).Error
	})
}

func (r *eventStore) RebuildSummary(
	ctx context.Context,
	db *gorm.DB,
	id snowflake.ID,
	tenantID snowflake.ID,
	year, month int,
	now time.Time,
) error {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var rows []struct {
		EventType string `gorm:"column:event_type"`
		Total     int64  `gorm:"column:total"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT event_type, COALESCE(SUM(quantity), 0) AS total
		 FROM usage_events
		 WHERE tenant_id = ? AND recorded_at >= ? AND recorded_at < ?
		 GROUP BY event_type`,
		tenantID,
		monthStart,
		monthEnd,
	).Scan(&rows).Error
	if err != nil {
		return err
	}

	counters := datatypes.JSONMap{}
	for _, row := range rows {
		counters[row.EventType] = row.Total
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var summary usagedomain.UsageSummary
		err := tx.Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
			First(&summary).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if len(counters) == 0 {
				return nil
			}
			summary = usagedomain.UsageSummary{
				ID:        id,
				TenantID:  tenantID,
				Year:      year,
				Month:     month,
				Counters:  counters,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(&summary).Error
		}

		return tx.Model(&usagedomain.UsageSummary{}).
			Where("id = ?", summary.ID).
			Updates(map[string]any{
				"counters":   counters,
				"updated_at": now,
			}).Error
	})
}

func (r *eventStore) TenantsWithEvents(ctx context.Context, db *gorm.DB, from, to time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT tenant_id
		 FROM usage_events
		 WHERE recorded_at >= ? AND recorded_at < ?
		 LIMIT ?`,
		from,
		to,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
