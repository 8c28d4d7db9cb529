package reconcile

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/clock"
	obsmetrics "github.com/fixkit/fixkit/internal/observability/metrics"
	usagedomain "github.com/fixkit/fixkit/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Events     usagedomain.EventStore
	UsageSvc   usagedomain.Service
	Config     Config              `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Worker periodically rebuilds monthly usage summaries from the event log.
// The increment path is transactional, but a summary can still drift after a
// partial restore or a manual event backfill; rebuilding from the log is the
// source of truth. When billing sync is enabled the worker also pushes
// metered usage for every reconciled tenant.
type Worker struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	events     usagedomain.EventStore
	usageSvc   usagedomain.Service
	cfg        Config
	obsMetrics *obsmetrics.Metrics
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:         p.DB,
		log:        p.Log.Named("usage.reconcile"),
		genID:      p.GenID,
		clock:      p.Clock,
		events:     p.Events,
		usageSvc:   p.UsageSvc,
		cfg:        cfg,
		obsMetrics: p.ObsMetrics,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("usage reconcile run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	processed, err := w.processBatch(ctx, w.cfg.BatchSize)
	w.obsMetrics.RecordReconcileRun(err)
	if err != nil {
		return err
	}
	if processed > 0 {
		w.log.Info("usage summaries reconciled", zap.Int("tenants", processed))
	}
	return nil
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	now := w.clock.Now().UTC()
	from := now.Add(-w.cfg.Lookback)

	tenants, err := w.events.TenantsWithEvents(ctx, w.db, from, now, limit)
	if err != nil {
		return 0, err
	}
	if len(tenants) == 0 {
		return 0, nil
	}

	processed := 0
	for _, tenantID := range tenants {
		if err := w.reconcileTenant(ctx, tenantID, from, now); err != nil {
			w.log.Warn("tenant reconcile failed",
				zap.Error(err),
				zap.String("tenant_id", tenantID.String()),
			)
			continue
		}

		if w.cfg.SyncBilling {
			w.usageSvc.SyncBilling(ctx, tenantID)
		}

		processed++
	}

	return processed, nil
}

// reconcileTenant rebuilds every (year, month) summary the lookback window
// touches. The window spans at most two months with the default config.
func (w *Worker) reconcileTenant(ctx context.Context, tenantID snowflake.ID, from, to time.Time) error {
	for _, period := range monthsBetween(from, to) {
		id := w.genID.Generate()
		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return w.events.RebuildSummary(ctx, tx, id, tenantID, period.year, period.month, to)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type yearMonth struct {
	year  int
	month int
}

func monthsBetween(from, to time.Time) []yearMonth {
	var periods []yearMonth
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !cursor.After(end) {
		periods = append(periods, yearMonth{year: cursor.Year(), month: int(cursor.Month())})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return periods
}
