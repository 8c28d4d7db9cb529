package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/fixkit/fixkit/internal/billing/domain"
	"github.com/fixkit/fixkit/internal/clock"
	"github.com/fixkit/fixkit/internal/config"
	obsmetrics "github.com/fixkit/fixkit/internal/observability/metrics"
	plandomain "github.com/fixkit/fixkit/internal/plan/domain"
	tenantdomain "github.com/fixkit/fixkit/internal/tenant/domain"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const featureWindow = 30 * 24 * time.Hour

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     usagedomain.MetricsStore
	Events      usagedomain.EventStore
	PlanSvc     plandomain.Service
	TenantRepo  tenantdomain.Repository
	Enforcement *config.EnforcementHolder
	Provider    billingdomain.Provider `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	metrics     usagedomain.MetricsStore
	events      usagedomain.EventStore
	plansvc     plandomain.Service
	tenantRepo  tenantdomain.Repository
	enforcement *config.EnforcementHolder
	provider    billingdomain.Provider
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("usage.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		events:      p.Events,
		plansvc:     p.PlanSvc,
		tenantRepo:  p.TenantRepo,
		enforcement: p.Enforcement,
		provider:    p.Provider,
		obsMetrics:  p.ObsMetrics,
	}
}

// TrackEvent appends a usage event and increments the current month's
// summary counter. Both writes run in one transaction so the summary cannot
// drift ahead of the event log; any failure is logged and swallowed because
// tracking must never break the action being tracked.
func (s *Service) TrackEvent(ctx context.Context, req usagedomain.TrackEventRequest) {
	if req.TenantID == 0 {
		s.log.Warn("usage event dropped", zap.Error(usagedomain.ErrInvalidTenant))
		return
	}
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		s.log.Warn("usage event dropped",
			zap.Error(usagedomain.ErrInvalidEventType),
			zap.String("tenant_id", req.TenantID.String()),
		)
		return
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	now := s.clock.Now().UTC()
	event := &usagedomain.UsageEvent{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		EventType:  eventType,
		Quantity:   quantity,
		RecordedAt: now,
		CreatedAt:  now,
	}
	if req.Metadata != nil {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	summaryID := s.genID.Generate()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.events.InsertEvent(ctx, tx, event); err != nil {
			return err
		}
		return s.events.IncrementSummary(ctx, tx, summaryID, req.TenantID, now.Year(), int(now.Month()), eventType, quantity, now)
	})
	if err != nil {
		s.obsMetrics.RecordTrackFailure()
		s.log.Warn("usage event write failed",
			zap.Error(err),
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("event_type", eventType),
		)
		return
	}

	s.obsMetrics.RecordTrackedEvent(eventType)
}

// CurrentMetrics gathers the usage snapshot with a concurrent fan-out over
// the seven lookups. Under the open failure policy any lookup error degrades
// to all-zero metrics.
func (s *Service) CurrentMetrics(ctx context.Context, tenantID snowflake.ID) (usagedomain.Metrics, error) {
	now := s.clock.Now().UTC()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		metrics  usagedomain.Metrics
		firstErr error
	)
	metrics.FeatureUsage = map[string]int64{}

	record := func(err error, apply func()) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		apply()
	}

	run := func(fn func() (func(), error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			apply, err := fn()
			record(err, apply)
		}()
	}

	run(func() (func(), error) {
		n, err := s.metrics.CountWorkOrders(ctx, s.db, tenantID)
		return func() { metrics.WorkOrders = n }, err
	})
	run(func() (func(), error) {
		n, err := s.metrics.CountCustomers(ctx, s.db, tenantID)
		return func() { metrics.Customers = n }, err
	})
	run(func() (func(), error) {
		n, err := s.metrics.CountInventoryItems(ctx, s.db, tenantID)
		return func() { metrics.InventoryItems = n }, err
	})
	run(func() (func(), error) {
		n, err := s.metrics.CountEmployees(ctx, s.db, tenantID)
		return func() { metrics.Employees = n }, err
	})
	run(func() (func(), error) {
		n, err := s.metrics.CountStores(ctx, s.db, tenantID)
		return func() { metrics.Stores = n }, err
	})
	run(func() (func(), error) {
		summary, err := s.metrics.MonthlySummary(ctx, s.db, tenantID, now.Year(), int(now.Month()))
		return func() { metrics.APICalls = summary.Counter(usagedomain.EventAPICalls) }, err
	})
	run(func() (func(), error) {
		total, err := s.metrics.StorageUsedMB(ctx, s.db, tenantID)
		return func() { metrics.StorageUsedMB = total }, err
	})
	run(func() (func(), error) {
		usage, err := s.metrics.FeatureUsageSince(ctx, s.db, tenantID, now.Add(-featureWindow))
		return func() {
			if usage != nil {
				metrics.FeatureUsage = usage
			}
		}, err
	})

	wg.Wait()

	if firstErr != nil {
		if s.failClosed() {
			return usagedomain.Metrics{}, fmt.Errorf("%w: %v", usagedomain.ErrMetricsLookup, firstErr)
		}
		s.log.Warn("usage metrics degraded to zero",
			zap.Error(firstErr),
			zap.String("tenant_id", tenantID.String()),
		)
		return usagedomain.Metrics{FeatureUsage: map[string]int64{}}, nil
	}

	return metrics, nil
}

// PlanLimits resolves the tenant's ceiling set. Under the open failure
// policy an unresolvable plan degrades to unlimited.
func (s *Service) PlanLimits(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error) {
	limits, err := s.lookupPlanLimits(ctx, tenantID)
	if err != nil {
		if s.failClosed() {
			return plandomain.Limits{}, fmt.Errorf("%w: %v", usagedomain.ErrLimitsLookup, err)
		}
		s.log.Warn("plan limits degraded to unlimited",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return plandomain.Unlimited(), nil
	}
	return limits, nil
}

func (s *Service) lookupPlanLimits(ctx context.Context, tenantID snowflake.ID) (plandomain.Limits, error) {
	planName, err := s.plansvc.PlanNameForTenant(ctx, tenantID)
	if err != nil {
		return plandomain.Limits{}, err
	}
	return s.plansvc.LimitsByPlanName(ctx, planName)
}

// Report composes metrics and limits and applies the threshold rules. The
// metric evaluation order is fixed and warning order follows it.
func (s *Service) Report(ctx context.Context, tenantID snowflake.ID) (usagedomain.Report, error) {
	metrics, err := s.CurrentMetrics(ctx, tenantID)
	if err != nil {
		return usagedomain.Report{}, err
	}
	limits, err := s.PlanLimits(ctx, tenantID)
	if err != nil {
		return usagedomain.Report{}, err
	}

	return buildReport(metrics, limits, s.warnThreshold()), nil
}

func buildReport(metrics usagedomain.Metrics, limits plandomain.Limits, warnThreshold float64) usagedomain.Report {
	report := usagedomain.Report{
		Metrics:     metrics,
		Limits:      limits,
		Percentages: map[string]float64{},
		Overages:    map[string]float64{},
	}

	for _, metric := range usagedomain.MetricOrder {
		value, limit := metricValue(metrics, limits, metric)
		if limit == nil {
			// Unlimited: no percentage, no warning, cannot be over.
			continue
		}

		var pct float64
		hasPct := false
		if *limit > 0 {
			pct = 100 * value / *limit
			hasPct = true
			report.Percentages[metric] = roundPercent(pct)
		} else if value == 0 {
			report.Percentages[metric] = 0
		}

		if value > *limit {
			overage := value - *limit
			report.Overages[metric] = overage
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("exceeded %s limit by %s", metric, formatAmount(overage)))
			continue
		}

		// Threshold check on the raw percentage; rounding is display-only.
		if hasPct && pct > warnThreshold {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("approaching %s limit (%s%%)", metric, formatAmount(roundPercent(pct))))
		}
	}

	report.IsOverLimit = len(report.Overages) > 0
	return report
}

func metricValue(metrics usagedomain.Metrics, limits plandomain.Limits, metric string) (float64, *float64) {
	switch metric {
	case usagedomain.MetricWorkOrders:
		return float64(metrics.WorkOrders), intLimit(limits.MaxWorkOrders)
	case usagedomain.MetricCustomers:
		return float64(metrics.Customers), intLimit(limits.MaxCustomers)
	case usagedomain.MetricInventoryItems:
		return float64(metrics.InventoryItems), intLimit(limits.MaxInventoryItems)
	case usagedomain.MetricEmployees:
		return float64(metrics.Employees), intLimit(limits.MaxEmployees)
	case usagedomain.MetricStores:
		return float64(metrics.Stores), intLimit(limits.MaxStores)
	case usagedomain.MetricAPICalls:
		return float64(metrics.APICalls), intLimit(limits.MaxAPICalls)
	case usagedomain.MetricStorageUsedMB:
		return metrics.StorageUsedMB, limits.MaxStorageMB
	default:
		return 0, nil
	}
}

func intLimit(limit *int64) *float64 {
	if limit == nil {
		return nil
	}
	v := float64(*limit)
	return &v
}

func roundPercent(pct float64) float64 {
	return math.Round(pct*10) / 10
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RecommendPlan returns the cheapest active plan whose customer, inventory,
// employee and store ceilings accommodate current usage. API-call and
// storage usage are intentionally not part of the comparison.
func (s *Service) RecommendPlan(ctx context.Context, tenantID snowflake.ID) (string, error) {
	metrics, err := s.CurrentMetrics(ctx, tenantID)
	if err != nil {
		return "", nil
	}

	plans, err := s.plansvc.ListActive(ctx)
	if err != nil {
		s.log.Warn("plan recommendation unavailable", zap.Error(err))
		return "", nil
	}
	if len(plans) == 0 {
		return "", nil
	}

	for _, plan := range plans {
		if planFits(plan, metrics) {
			return plan.Name, nil
		}
	}

	// Nothing fits: fall back to the most expensive (assumed most
	// permissive) active plan.
	return plans[len(plans)-1].Name, nil
}

func planFits(plan plandomain.Plan, metrics usagedomain.Metrics) bool {
	return ceilingFits(plan.MaxCustomers, metrics.Customers) &&
		ceilingFits(plan.MaxInventoryItems, metrics.InventoryItems) &&
		ceilingFits(plan.MaxEmployees, metrics.Employees) &&
		ceilingFits(plan.MaxStores, metrics.Stores)
}

func ceilingFits(limit *int64, value int64) bool {
	return limit == nil || *limit >= value
}

// SyncBilling reports current metric values for the tenant's metered
// subscription items. Fire-and-forget: every failure is logged, none is
// surfaced, so billing sync never blocks the surrounding code path.
func (s *Service) SyncBilling(ctx context.Context, tenantID snowflake.ID) {
	if s.provider == nil {
		return
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil || tenant == nil {
		s.log.Warn("billing sync skipped: tenant lookup failed",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return
	}
	if strings.TrimSpace(tenant.StripeSubscriptionID) == "" {
		return
	}

	items, err := s.provider.MeteredItems(ctx, tenant.StripeSubscriptionID)
	if err != nil {
		s.obsMetrics.RecordBillingError()
		s.log.Warn("billing sync skipped: subscription items unavailable",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return
	}
	if len(items) == 0 {
		return
	}

	metrics, err := s.CurrentMetrics(ctx, tenantID)
	if err != nil {
		s.obsMetrics.RecordBillingError()
		return
	}

	now := s.clock.Now().UTC()
	for _, item := range items {
		var quantity int64
		switch item.Metric {
		case billingdomain.MetricAPICalls:
			quantity = metrics.APICalls
		case billingdomain.MetricStorageMB:
			quantity = int64(metrics.StorageUsedMB)
		default:
			continue
		}
		if quantity <= 0 {
			continue
		}
		if err := s.provider.ReportUsage(ctx, item.ItemID, quantity, now); err != nil {
			s.obsMetrics.RecordBillingError()
			s.log.Warn("billing usage report failed",
				zap.Error(err),
				zap.String("tenant_id", tenantID.String()),
				zap.String("item_id", item.ItemID),
				zap.String("metric", item.Metric),
			)
			continue
		}
	}

	s.obsMetrics.RecordBillingSync()
}

func (s *Service) failClosed() bool {
	if s.enforcement == nil {
		return false
	}
	return s.enforcement.Get().FailurePolicy == config.PolicyClosed
}

func (s *Service) warnThreshold() float64 {
	if s.enforcement == nil {
		return 80
	}
	return s.enforcement.Get().WarnThresholdPercent
}
