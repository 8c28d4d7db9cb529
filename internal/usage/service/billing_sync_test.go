package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	billingdomain "github.com/fixkit/fixkit/internal/billing/domain"
	"github.com/fixkit/fixkit/internal/clock"
	tenantdomain "github.com/fixkit/fixkit/internal/tenant/domain"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
)

type providerStub struct {
	mu       sync.Mutex
	items    []billingdomain.MeteredItem
	itemsErr error
	reports  map[string]int64
}

func (p *providerStub) MeteredItems(ctx context.Context, subscriptionID string) ([]billingdomain.MeteredItem, error) {
	if p.itemsErr != nil {
		return nil, p.itemsErr
	}
	return p.items, nil
}

func (p *providerStub) ReportUsage(ctx context.Context, itemID string, quantity int64, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reports == nil {
		p.reports = map[string]int64{}
	}
	p.reports[itemID] = quantity
	return nil
}

func (p *providerStub) Reports() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.reports))
	for k, v := range p.reports {
		out[k] = v
	}
	return out
}

func TestSyncBillingReportsMeteredItems(t *testing.T) {
	node := mustNode(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tenantRepo := &tenantRepoStub{tenant: &tenantdomain.Tenant{
		ID:                   tenantID,
		StripeSubscriptionID: "sub_123",
	}}
	svc, db := setupUsageService(t, node, clock.NewFakeClock(now), &planStub{}, tenantRepo)
	ctx := context.Background()

	seedStorageObject(t, db, node, tenantID, 42.9)
	svc.TrackEvent(ctx, usagedomain.TrackEventRequest{
		TenantID: tenantID, EventType: usagedomain.EventAPICalls, Quantity: 17,
	})

	provider := &providerStub{items: []billingdomain.MeteredItem{
		{ItemID: "si_api", Metric: billingdomain.MetricAPICalls},
		{ItemID: "si_storage", Metric: billingdomain.MetricStorageMB},
		{ItemID: "si_other", Metric: "seats"},
	}}
	svc.(*Service).provider = provider

	svc.SyncBilling(ctx, tenantID)

	reports := provider.Reports()
	if reports["si_api"] != 17 {
		t.Fatalf("expected 17 api calls reported, got %d", reports["si_api"])
	}
	// Storage quantities truncate to whole megabytes.
	if reports["si_storage"] != 42 {
		t.Fatalf("expected 42 MB reported, got %d", reports["si_storage"])
	}
	if _, ok := reports["si_other"]; ok {
		t.Fatal("untagged metered item must not be reported")
	}
}

func TestSyncBillingSkipsWithoutSubscription(t *testing.T) {
	node := mustNode(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tenantRepo := &tenantRepoStub{tenant: &tenantdomain.Tenant{ID: tenantID}}
	svc, _ := setupUsageService(t, node, clock.NewFakeClock(now), &planStub{}, tenantRepo)

	provider := &providerStub{items: []billingdomain.MeteredItem{
		{ItemID: "si_api", Metric: billingdomain.MetricAPICalls},
	}}
	svc.(*Service).provider = provider

	svc.SyncBilling(context.Background(), tenantID)

	if len(provider.Reports()) != 0 {
		t.Fatal("tenant without a subscription must not be reported")
	}
}

func TestSyncBillingSwallowsProviderFailure(t *testing.T) {
	node := mustNode(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tenantRepo := &tenantRepoStub{tenant: &tenantdomain.Tenant{
		ID:                   tenantID,
		StripeSubscriptionID: "sub_123",
	}}
	svc, _ := setupUsageService(t, node, clock.NewFakeClock(now), &planStub{}, tenantRepo)
	svc.(*Service).provider = &providerStub{itemsErr: errors.New("stripe down")}

	// Must not panic or propagate.
	svc.SyncBilling(context.Background(), tenantID)
}
