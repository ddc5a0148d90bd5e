package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/fllarpy/frontend-service/domain"
	metricdefs "github.com/fllarpy/frontend-service/domain/metrics"
	"github.com/fllarpy/frontend-service/pkg/config"
)

var _ domain.RequestRecorder = (*Registry)(nil)

// Registry owns the process-wide request counter and response-time histogram.
// Instruments are recorded through the OpenTelemetry metric SDK and read back
// by a Prometheus exporter bound to a private prometheus.Registry, so a scrape
// never interferes with recording.
type Registry struct {
	gatherer *prometheus.Registry
	provider *sdkmetric.MeterProvider

	requestsName     string
	responseTimeName string

	requests     metric.Int64Counter
	responseTime metric.Float64Histogram
}

// NewRegistry creates the meter provider, its Prometheus reader and both instruments.
func NewRegistry(cfg config.MetricsConfig) (*Registry, error) {
	promRegistry := prometheus.NewRegistry()

	// Series names are exposed exactly as defined: no unit or _total suffixes
	// and no otel_scope_* / target_info series.
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(promRegistry),
		otelprom.WithoutUnits(),
		otelprom.WithoutCounterSuffixes(),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	requestsDef, responseTimeDef := metricdefs.Definitions(cfg.Prefix)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: responseTimeDef.Name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: append([]float64(nil), metricdefs.ResponseTimeBuckets...),
			}},
		)),
	)
	meter := provider.Meter(cfg.Prefix)

	requests, err := meter.Int64Counter(
		requestsDef.Name,
		metric.WithDescription(requestsDef.Description),
	)
	if err != nil {
		return nil, fmt.Errorf("create counter %s: %w", requestsDef.Name, err)
	}

	responseTime, err := meter.Float64Histogram(
		responseTimeDef.Name,
		metric.WithDescription(responseTimeDef.Description),
		metric.WithUnit(metricdefs.ResponseTimeUnit),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram %s: %w", responseTimeDef.Name, err)
	}

	return &Registry{
		gatherer:         promRegistry,
		provider:         provider,
		requestsName:     requestsDef.Name,
		responseTimeName: responseTimeDef.Name,
		requests:         requests,
		responseTime:     responseTime,
	}, nil
}

// IncRequests adds one to the request counter.
func (r *Registry) IncRequests(ctx context.Context) {
	r.requests.Add(ctx, 1)
}

// ObserveResponseTime records elapsed, in milliseconds, labelled with statusCode.
func (r *Registry) ObserveResponseTime(ctx context.Context, elapsed time.Duration, statusCode int) {
	ms := float64(elapsed) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	r.responseTime.Record(ctx, ms, metric.WithAttributes(
		attribute.String(metricdefs.StatusCodeLabel, metricdefs.StatusLabelValue(statusCode)),
	))
}

// Gatherer is the source served by the exposition endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// MeterProvider lets other instrumentation publish through the same exposition endpoint.
func (r *Registry) MeterProvider() metric.MeterProvider {
	return r.provider
}

// Registerer accepts extra collectors exposed next to the request metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.gatherer
}

// Shutdown stops the meter provider. Later scrapes return no data.
func (r *Registry) Shutdown(ctx context.Context) error {
	if err := r.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
