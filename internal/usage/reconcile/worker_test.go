package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/clock"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"github.com/fixkit/fixkit/internal/usage/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type usageServiceStub struct {
	mu     sync.Mutex
	synced []snowflake.ID
}

func (s *usageServiceStub) TrackEvent(ctx context.Context, req usagedomain.TrackEventRequest) {}

func (s *usageServiceStub) CurrentMetrics(ctx context.Context, tenantID snowflake.ID) (usagedomain.Metrics, error) {
	return usagedomain.Metrics{}, nil
}

func (s *usageServiceStub) PlanLimits(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error) {
	return plandomain.Unlimited(), nil
}

func (s *usageServiceStub) Report(ctx context.Context, tenantID snowflake.ID) (usagedomain.Report, error) {
	return usagedomain.Report{}, nil
}

func (s *usageServiceStub) RecommendPlan(ctx context.Context, tenantID snowflake.ID) (string, error) {
	return "", nil
}

func (s *usageServiceStub) SyncBilling(ctx context.Context, tenantID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, tenantID)
}

func (s *usageServiceStub) Synced() []snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snowflake.ID(nil), s.synced...)
}

func TestRunOnceRepairsDriftedSummary(t *testing.T) {
	node := newTestNode(t)
	db := openReconcileDB(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

	// Event log holds 7 api_calls for April, but the summary drifted to 99.
	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 4, now.Add(-2*time.Hour))
	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 3, now.Add(-1*time.Hour))
	insertSummary(t, db, node, tenantID, 2026, 4, datatypes.JSONMap{usagedomain.EventAPICalls: int64(99)}, now)

	worker := newTestWorker(t, db, node, clock.NewFakeClock(now), Config{}, &usageServiceStub{})
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	summary := findSummary(t, db, tenantID, 2026, 4)
	if got := summary.Counter(usagedomain.EventAPICalls); got != 7 {
		t.Fatalf("expected summary rebuilt to 7, got %d", got)
	}
}

func TestRunOnceCreatesMissingSummary(t *testing.T) {
	node := newTestNode(t)
	db := openReconcileDB(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

	insertEvent(t, db, node, tenantID, usagedomain.EventWorkOrders, 2, now.Add(-30*time.Minute))

	worker := newTestWorker(t, db, node, clock.NewFakeClock(now), Config{}, &usageServiceStub{})
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	summary := findSummary(t, db, tenantID, 2026, 4)
	if got := summary.Counter(usagedomain.EventWorkOrders); got != 2 {
		t.Fatalf("expected summary created with 2, got %d", got)
	}
}

func TestRunOnceSpansMonthBoundary(t *testing.T) {
	node := newTestNode(t)
	db := openReconcileDB(t)
	tenantID := node.Generate()
	// 48h lookback from May 1st reaches back into April.
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 5, now.Add(-36*time.Hour))
	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 1, now.Add(-time.Hour))

	worker := newTestWorker(t, db, node, clock.NewFakeClock(now), Config{}, &usageServiceStub{})
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	april := findSummary(t, db, tenantID, 2026, 4)
	if got := april.Counter(usagedomain.EventAPICalls); got != 5 {
		t.Fatalf("expected april summary 5, got %d", got)
	}
	may := findSummary(t, db, tenantID, 2026, 5)
	if got := may.Counter(usagedomain.EventAPICalls); got != 1 {
		t.Fatalf("expected may summary 1, got %d", got)
	}
}

func TestRunOnceSyncsBillingPerTenant(t *testing.T) {
	node := newTestNode(t)
	db := openReconcileDB(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 1, now.Add(-time.Hour))

	stub := &usageServiceStub{}
	worker := newTestWorker(t, db, node, clock.NewFakeClock(now), Config{SyncBilling: true}, stub)
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	synced := stub.Synced()
	if len(synced) != 1 || synced[0] != tenantID {
		t.Fatalf("expected billing sync for tenant %s, got %v", tenantID, synced)
	}
}

func TestRunOnceIgnoresEventsOutsideLookback(t *testing.T) {
	node := newTestNode(t)
	db := openReconcileDB(t)
	tenantID := node.Generate()
	now := time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

	insertEvent(t, db, node, tenantID, usagedomain.EventAPICalls, 9, now.Add(-72*time.Hour))
	insertSummary(t, db, node, tenantID, 2026, 4, datatypes.JSONMap{usagedomain.EventAPICalls: int64(42)}, now)

	worker := newTestWorker(t, db, node, clock.NewFakeClock(now), Config{}, &usageServiceStub{})
	if err := worker.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	// No recent events means the tenant is not selected, drift stays.
	summary := findSummary(t, db, tenantID, 2026, 4)
	if got := summary.Counter(usagedomain.EventAPICalls); got != 42 {
		t.Fatalf("expected untouched summary 42, got %d", got)
	}
}

func TestMonthsBetween(t *testing.T) {
	from := time.Date(2026, time.March, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)

	periods := monthsBetween(from, to)
	want := []yearMonth{{2026, 3}, {2026, 4}, {2026, 5}}
	if len(periods) != len(want) {
		t.Fatalf("expected %d periods, got %d", len(want), len(periods))
	}
	for i, p := range periods {
		if p != want[i] {
			t.Fatalf("period %d: expected %v, got %v", i, want[i], p)
		}
	}
}

func newTestWorker(
	t *testing.T,
	db *gorm.DB,
	node *snowflake.Node,
	clk clock.Clock,
	cfg Config,
	usageSvc usagedomain.Service,
) *Worker {
	t.Helper()
	return NewWorker(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Events:   repository.ProvideEventStore(),
		UsageSvc: usageSvc,
		Config:   cfg,
	})
}

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func openReconcileDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	statements := []string{
		`CREATE TABLE usage_events (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			quantity BIGINT NOT NULL DEFAULT 1,
			metadata TEXT,
			recorded_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE usage_summaries (
			id BIGINT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			counters TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (tenant_id, year, month)
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, eventType string, quantity int64, at time.Time) {
	t.Helper()
	event := usagedomain.UsageEvent{
		ID:         node.Generate(),
		TenantID:   tenantID,
		EventType:  eventType,
		Quantity:   quantity,
		RecordedAt: at,
		CreatedAt:  at,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

func insertSummary(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, year, month int, counters datatypes.JSONMap, now time.Time) {
	t.Helper()
	summary := usagedomain.UsageSummary{
		ID:        node.Generate(),
		TenantID:  tenantID,
		Year:      year,
		Month:     month,
		Counters:  counters,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&summary).Error; err != nil {
		t.Fatalf("insert summary: %v", err)
	}
}

func findSummary(t *testing.T, db *gorm.DB, tenantID snowflake.ID, year, month int) *usagedomain.UsageSummary {
	t.Helper()
	var summary usagedomain.UsageSummary
	err := db.Where("tenant_id = ? AND year = ? AND month = ?", tenantID, year, month).
		First(&summary).Error
	if err != nil {
		t.Fatalf("find summary: %v", err)
	}
	return &summary
}
