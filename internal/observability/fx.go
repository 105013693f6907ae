package observability

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/ringbill/ringbill/internal/observability/logger"
	"github.com/ringbill/ringbill/internal/observability/metrics"
	"github.com/ringbill/ringbill/internal/observability/tracing"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(tracing.NewProvider),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
