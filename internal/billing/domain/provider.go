// Package domain defines the metered-billing provider contract consumed by
// the usage engine's best-effort billing sync.
package domain

import (
	"context"
	"errors"
	"time"
)

// Metric tags recognized on metered line items.
const (
	MetricAPICalls  = "api_calls"
	MetricStorageMB = "storage_mb"
)

// MeteredItem is one metered subscription line item, tagged with the usage
// metric it bills.
type MeteredItem struct {
	ItemID string
	Metric string
}

// Provider reads a subscription's metered line items and appends incremental
// usage records.
type Provider interface {
	// MeteredItems returns the subscription's line items whose price
	// metadata tags them with a known metric. Untagged items are omitted.
	MeteredItems(ctx context.Context, subscriptionID string) ([]MeteredItem, error)
	// ReportUsage appends an incremental usage record for the item.
	ReportUsage(ctx context.Context, itemID string, quantity int64, at time.Time) error
}

var (
	ErrNotConfigured = errors.New("billing_provider_not_configured")
	ErrRequestFailed = errors.New("billing_request_failed")
)
