package workorder

import (
	"github.com/fixkit/fixkit/internal/workorder/repository"
	"github.com/fixkit/fixkit/internal/workorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
