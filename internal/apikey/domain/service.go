package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	ScopeUsageWrite = "usage:write"
	ScopeUsageRead  = "usage:read"
	ScopeWorkOrders = "workorders:manage"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Rotate(ctx context.Context, keyID string) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error
	// Authenticate resolves a raw bearer key to its owning tenant. Inactive
	// and expired keys do not authenticate.
	Authenticate(ctx context.Context, raw string) (*APIKey, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	Update(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByKeyID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, keyID string) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]APIKey, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type CreateRequest struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
}

type Response struct {
	KeyID            string     `json:"key_id"`
	Name             string     `json:"name"`
	Scopes           []string   `json:"scopes"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	RotatedFromKeyID *string    `json:"rotated_from_key_id"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidKeyID  = errors.New("invalid_key_id")
	ErrNotFound      = errors.New("not_found")
	ErrUnauthorized  = errors.New("unauthorized")
)
