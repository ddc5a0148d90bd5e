// Package frontendsvc wires the telemetry pipeline and the HTTP listeners of
// the frontend forwarding service and of the book service it fronts.
package frontendsvc

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fllarpy/frontend-service/internal/adapters/metrics"
	"github.com/fllarpy/frontend-service/internal/adapters/tracing"
	"github.com/fllarpy/frontend-service/internal/application/collector"
	"github.com/fllarpy/frontend-service/nplusone"
	"github.com/fllarpy/frontend-service/pkg/config"
	"github.com/fllarpy/frontend-service/profiling"
)

// Telemetry is the process-wide measurement context. It is created once at
// startup and handed explicitly to everything on the request path.
type Telemetry struct {
	Metrics *metrics.Registry
	Tracing *tracing.Emitter
}

// NewTelemetry creates the metrics registry and the trace emitter described
// by cfg. Optional span processors (slow-request profiler, N+1 detector) are
// attached when enabled.
func NewTelemetry(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...tracing.Option) (*Telemetry, error) {
	registry, err := metrics.NewRegistry(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("create metrics registry: %w", err)
	}
	if cfg.Metrics.Runtime {
		if err := collector.RegisterRuntime(registry.Registerer()); err != nil {
			_ = registry.Shutdown(ctx)
			return nil, err
		}
	}

	if cfg.Profiling.Enabled {
		opts = append(opts, tracing.WithSpanProcessor(profiling.NewProfiler(cfg.Profiling, logger)))
	}
	if cfg.Tracing.NPlusOneThreshold > 0 {
		opts = append(opts, tracing.WithSpanProcessor(nplusone.NewDetector(cfg.Tracing.NPlusOneThreshold, logger)))
	}

	emitter, err := tracing.NewEmitter(ctx, cfg.Tracing, cfg.ServiceName, logger, opts...)
	if err != nil {
		_ = registry.Shutdown(ctx)
		return nil, fmt.Errorf("create trace emitter: %w", err)
	}

	return &Telemetry{
		Metrics: registry,
		Tracing: emitter,
	}, nil
}

// TracerProvider is the provider handed to the inbound and outbound decorators.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.Tracing.TracerProvider()
}

// Shutdown flushes pending spans and stops the meter provider. Both are
// attempted even if one fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return multierr.Combine(
		t.Tracing.Shutdown(ctx),
		t.Metrics.Shutdown(ctx),
	)
}

// InstallErrorHandler routes errors raised inside the OpenTelemetry SDK, such
// as failed span exports, to logger instead of the request path.
func InstallErrorHandler(logger *zap.Logger) {
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("Telemetry error", zap.Error(err))
	}))
}
