package reconcile

import (
	"context"
	"time"

	"github.com/fixkit/fixkit/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.reconcile",
	fx.Provide(configFromApp),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func configFromApp(cfg config.Config) Config {
	c := DefaultConfig()
	if cfg.Reconcile.PollIntervalSeconds > 0 {
		c.PollInterval = time.Duration(cfg.Reconcile.PollIntervalSeconds) * time.Second
	}
	if cfg.Reconcile.BatchSize > 0 {
		c.BatchSize = cfg.Reconcile.BatchSize
	}
	c.SyncBilling = cfg.Stripe.Enabled
	return c
}

func runWorker(lc fx.Lifecycle, cfg config.Config, worker *Worker) {
	if !cfg.Reconcile.Enabled {
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
