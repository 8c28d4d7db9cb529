package apikey

import (
	"github.com/fixkit/fixkit/internal/apikey/repository"
	"github.com/fixkit/fixkit/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
