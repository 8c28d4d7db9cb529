package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	workorderdomain "github.com/fixkit/fixkit/internal/workorder/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() workorderdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *workorderdomain.WorkOrder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO work_orders (id, tenant_id, customer_id, store_id, title, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.TenantID,
		order.CustomerID,
		order.StoreID,
		order.Title,
		order.Description,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*workorderdomain.WorkOrder, error) {
	var order workorderdomain.WorkOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, customer_id, store_id, title, description, status, created_at, updated_at
		 FROM work_orders WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, status string, limit, offset int) ([]workorderdomain.WorkOrder, error) {
	query := db.WithContext(ctx).
		Table("work_orders").
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []workorderdomain.WorkOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, order *workorderdomain.WorkOrder) error {
	return db.WithContext(ctx).Exec(
		`UPDATE work_orders SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		order.Status,
		order.UpdatedAt,
		order.TenantID,
		order.ID,
	).Error
}
