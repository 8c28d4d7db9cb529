package usage

import (
	"github.com/fixkit/fixkit/internal/usage/repository"
	"github.com/fixkit/fixkit/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.ProvideMetricsStore),
	fx.Provide(repository.ProvideEventStore),
	fx.Provide(service.NewService),
)
