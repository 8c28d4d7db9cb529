package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fixkit/fixkit/internal/billing"
	"github.com/fixkit/fixkit/internal/clock"
	"github.com/fixkit/fixkit/internal/config"
	"github.com/fixkit/fixkit/internal/logger"
	"github.com/fixkit/fixkit/internal/observability"
	"github.com/fixkit/fixkit/internal/plan"
	"github.com/fixkit/fixkit/internal/tenant"
	"github.com/fixkit/fixkit/internal/usage"
	"github.com/fixkit/fixkit/internal/usage/reconcile"
	"github.com/fixkit/fixkit/pkg/db"
	"go.uber.org/fx"
)

// The worker runs the reconciliation loop without the HTTP surface. Deploy
// it standalone when the API replicas are scaled out.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		observability.Module,
		tenant.Module,
		plan.Module,
		billing.Module,
		usage.Module,
		reconcile.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
