package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/clock"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	"github.com/fixkit/fixkit/internal/tenantctx"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	workorderdomain "github.com/fixkit/fixkit/internal/workorder/domain"
	"github.com/fixkit/fixkit/internal/workorder/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type trackingUsageStub struct {
	mu      sync.Mutex
	tracked []usagedomain.TrackEventRequest
}

func (s *trackingUsageStub) TrackEvent(ctx context.Context, req usagedomain.TrackEventRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, req)
}

func (s *trackingUsageStub) CurrentMetrics(ctx context.Context, tenantID snowflake.ID) (usagedomain.Metrics, error) {
	return usagedomain.Metrics{}, nil
}

func (s *trackingUsageStub) PlanLimits(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error) {
	return plandomain.Unlimited(), nil
}

func (s *trackingUsageStub) Report(ctx context.Context, tenantID snowflake.ID) (usagedomain.Report, error) {
	return usagedomain.Report{}, nil
}

func (s *trackingUsageStub) RecommendPlan(ctx context.Context, tenantID snowflake.ID) (string, error) {
	return "", nil
}

func (s *trackingUsageStub) SyncBilling(ctx context.Context, tenantID snowflake.ID) {}

func (s *trackingUsageStub) Tracked() []usagedomain.TrackEventRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]usagedomain.TrackEventRequest(nil), s.tracked...)
}

func TestCreateTracksUsageEvent(t *testing.T) {
	svc, usage, node := setupWorkOrderService(t)
	tenantID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	order, err := svc.Create(ctx, workorderdomain.CreateRequest{
		CustomerID: node.Generate(),
		StoreID:    node.Generate(),
		Title:      "  Screen replacement  ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Title != "Screen replacement" {
		t.Fatalf("expected trimmed title, got %q", order.Title)
	}
	if order.Status != workorderdomain.StatusOpen {
		t.Fatalf("expected status open, got %q", order.Status)
	}

	tracked := usage.Tracked()
	if len(tracked) != 1 {
		t.Fatalf("expected 1 tracked event, got %d", len(tracked))
	}
	if tracked[0].EventType != usagedomain.EventWorkOrders || tracked[0].TenantID != tenantID {
		t.Fatalf("unexpected tracked event: %+v", tracked[0])
	}
	if tracked[0].Metadata["work_order_id"] != order.ID.String() {
		t.Fatalf("expected work order id in metadata, got %v", tracked[0].Metadata)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, usage, node := setupWorkOrderService(t)

	if _, err := svc.Create(context.Background(), workorderdomain.CreateRequest{Title: "x"}); !errors.Is(err, workorderdomain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}

	ctx := tenantctx.WithTenantID(context.Background(), node.Generate())
	if _, err := svc.Create(ctx, workorderdomain.CreateRequest{Title: "   "}); !errors.Is(err, workorderdomain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}

	if len(usage.Tracked()) != 0 {
		t.Fatal("rejected creates must not track usage")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _, node := setupWorkOrderService(t)
	tenantID := node.Generate()
	ctx := tenantctx.WithTenantID(context.Background(), tenantID)

	first, err := svc.Create(ctx, workorderdomain.CreateRequest{Title: "battery swap"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, workorderdomain.CreateRequest{Title: "water damage"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, first.ID, workorderdomain.StatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	completed, err := svc.List(ctx, workorderdomain.ListRequest{Status: workorderdomain.StatusCompleted})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != first.ID {
		t.Fatalf("expected only the completed order, got %d rows", len(completed))
	}

	all, err := svc.List(ctx, workorderdomain.ListRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	if _, err := svc.List(ctx, workorderdomain.ListRequest{Status: "bogus"}); !errors.Is(err, workorderdomain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestGetScopedToTenant(t *testing.T) {
	svc, _, node := setupWorkOrderService(t)
	owner := tenantctx.WithTenantID(context.Background(), node.Generate())
	other := tenantctx.WithTenantID(context.Background(), node.Generate())

	order, err := svc.Create(owner, workorderdomain.CreateRequest{Title: "diagnostics"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(owner, order.ID); err != nil {
		t.Fatalf("get as owner: %v", err)
	}
	if _, err := svc.Get(other, order.ID); !errors.Is(err, workorderdomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other tenant, got %v", err)
	}
}

func setupWorkOrderService(t *testing.T) (workorderdomain.Service, *trackingUsageStub, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

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

	ddl := `CREATE TABLE work_orders (
		id BIGINT PRIMARY KEY,
		tenant_id BIGINT NOT NULL,
		customer_id BIGINT,
		store_id BIGINT,
		title TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if err := db.Exec(ddl).Error; err != nil {
		t.Fatalf("schema: %v", err)
	}

	usage := &trackingUsageStub{}
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		UsageSvc: usage,
	})
	return svc, usage, node
}
