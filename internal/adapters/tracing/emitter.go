package tracing

import (
	"context"
	"fmt"
	"net"

	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fllarpy/frontend-service/exporter"
	"github.com/fllarpy/frontend-service/pkg/config"
)

// Emitter owns the process-wide span pipeline: a tracer provider whose batch
// processor hands completed spans to one long-lived exporter. Spans are
// enqueued without blocking and dropped when the queue is full; export errors
// go to the OpenTelemetry error handler and never reach request handling.
type Emitter struct {
	tp     *sdktrace.TracerProvider
	logger *zap.Logger
}

// Option customises the tracer provider built by NewEmitter.
type Option func(*options)

type options struct {
	processors []sdktrace.SpanProcessor
}

// WithSpanProcessor registers an additional processor next to the exporter's
// batcher, e.g. an in-memory recorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.processors = append(o.processors, sp)
	}
}

// NewEmitter creates the exporter selected by cfg.Exporter and the tracer
// provider tagged with serviceName.
func NewEmitter(ctx context.Context, cfg config.TracingConfig, serviceName string, logger *zap.Logger, opts ...Option) (*Emitter, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	}

	spanExporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if spanExporter != nil {
		batchOpts := []sdktrace.BatchSpanProcessorOption{}
		if cfg.BatchTimeout > 0 {
			batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(cfg.BatchTimeout))
		}
		if cfg.MaxQueueSize > 0 {
			batchOpts = append(batchOpts, sdktrace.WithMaxQueueSize(cfg.MaxQueueSize))
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(spanExporter, batchOpts...))
	}
	for _, sp := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}

	logger.Info("Trace emitter initialized",
		zap.String("exporter", cfg.Exporter),
		zap.String("service", serviceName),
	)
	return &Emitter{
		tp:     sdktrace.NewTracerProvider(tpOpts...),
		logger: logger,
	}, nil
}

// TracerProvider is the provider handed to the instrumentation decorators.
func (e *Emitter) TracerProvider() trace.TracerProvider {
	return e.tp
}

// Shutdown flushes queued spans and closes the exporter. Best-effort: the
// returned error is for logging only.
func (e *Emitter) Shutdown(ctx context.Context) error {
	if err := e.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}

func newExporter(ctx context.Context, cfg config.TracingConfig, logger *zap.Logger) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case config.ExporterJaeger:
		// The agent client keeps one UDP socket for the life of the process and
		// re-resolves the host in the background when it is not reachable yet.
		exp, err := jaeger.New(jaeger.WithAgentEndpoint(
			jaeger.WithAgentHost(cfg.JaegerHost),
			jaeger.WithAgentPort(cfg.JaegerPort),
			jaeger.WithLogger(zap.NewStdLog(logger.Named("jaeger"))),
		))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter for %s: %w", net.JoinHostPort(cfg.JaegerHost, cfg.JaegerPort), err)
		}
		return exp, nil
	case config.ExporterOTLP:
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter for %s: %w", cfg.OTLPEndpoint, err)
		}
		return exp, nil
	case config.ExporterLog:
		return exporter.NewLogExporter(logger), nil
	case config.ExporterNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}
