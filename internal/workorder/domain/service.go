package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*WorkOrder, error)
	Get(ctx context.Context, id snowflake.ID) (*WorkOrder, error)
	List(ctx context.Context, req ListRequest) ([]WorkOrder, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status string) (*WorkOrder, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *WorkOrder) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*WorkOrder, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, status string, limit, offset int) ([]WorkOrder, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, order *WorkOrder) error
}

type CreateRequest struct {
	CustomerID  snowflake.ID `json:"customer_id,string"`
	StoreID     snowflake.ID `json:"store_id,string"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

type ListRequest struct {
	Status string
	Limit  int
	Offset int
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidTitle  = errors.New("invalid_title")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("not_found")
)
