package plan

import (
	"github.com/fixkit/fixkit/internal/plan/repository"
	"github.com/fixkit/fixkit/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
