package observability

import (
	"github.com/fixkit/fixkit/internal/observability/metrics"
	"github.com/fixkit/fixkit/internal/observability/tracing"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		tracing.NewProvider,
		provideRegistry,
		metrics.New,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	return reg
}
