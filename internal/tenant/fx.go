package tenant

import (
	"github.com/fixkit/fixkit/internal/tenant/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant",
	fx.Provide(repository.Provide),
)
