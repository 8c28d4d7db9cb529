package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fixkit/fixkit/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyUsageIngestTenant = "usage:ingest:tenant:%s"
	keyUsageIngestLock   = "usage:ingest:lock:%s:%s"
)

// UsageIngestLimiter throttles the event ingest endpoint per tenant. It
// protects the database from a misbehaving client; the plan-limit gate is a
// separate concern and stays active even when this limiter is disabled.
type UsageIngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	tenantRate  float64
	tenantBurst int
	lockTTL     time.Duration
}

func NewUsageIngestLimiter(cfg config.Config) (*UsageIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.TenantRate <= 0 || limitCfg.TenantBurst <= 0 {
		return nil, errors.New("usage ingest tenant rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &UsageIngestLimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		locker:      NewLocker(client),
		tenantRate:  limitCfg.TenantRate,
		tenantBurst: limitCfg.TenantBurst,
		lockTTL:     time.Duration(limitCfg.LockTTLSeconds) * time.Second,
	}, nil
}

func (l *UsageIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *UsageIngestLimiter) AllowTenant(ctx context.Context, tenantID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUsageIngestTenant, strings.TrimSpace(tenantID)), l.tenantRate, l.tenantBurst)
}

// TryLockTenantEvent serializes concurrent ingest of the same (tenant,
// eventType) pair so the summary increment never races itself across
// instances.
func (l *UsageIngestLimiter) TryLockTenantEvent(ctx context.Context, tenantID, eventType string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(
		keyUsageIngestLock,
		strings.TrimSpace(tenantID),
		strings.TrimSpace(eventType),
	)
	return l.locker.TryLock(ctx, key, l.lockTTL)
}

func (l *UsageIngestLimiter) ReleaseTenantEvent(ctx context.Context, tenantID, eventType, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(
		keyUsageIngestLock,
		strings.TrimSpace(tenantID),
		strings.TrimSpace(eventType),
	)
	return l.locker.Release(ctx, key, token)
}
