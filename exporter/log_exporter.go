package exporter

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// LogExporter is a span exporter that writes one structured log line per
// completed span. It replaces a remote collector in local runs.
type LogExporter struct {
	logger *zap.Logger
}

var _ sdktrace.SpanExporter = (*LogExporter)(nil)

func NewLogExporter(logger *zap.Logger) *LogExporter {
	logger.Debug("Initializing log span exporter")
	return &LogExporter{logger: logger.Named("spans")}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := []zap.Field{
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("span_id", span.SpanContext().SpanID().String()),
			zap.String("kind", span.SpanKind().String()),
			zap.Duration("duration", span.EndTime().Sub(span.StartTime())),
		}
		if parent := span.Parent(); parent.IsValid() {
			fields = append(fields, zap.String("parent_span_id", parent.SpanID().String()))
		}
		if res := span.Resource(); res != nil {
			if name, ok := res.Set().Value("service.name"); ok {
				fields = append(fields, zap.String("service", name.AsString()))
			}
		}
		for _, attr := range span.Attributes() {
			switch attr.Key {
			case "http.status_code":
				fields = append(fields, zap.Int64("http_status_code", attr.Value.AsInt64()))
			case "http.route", "http.url", "http.method":
				fields = append(fields, zap.String(string(attr.Key), attr.Value.Emit()))
			}
		}

		if span.Status().Code == codes.Error {
			fields = append(fields, zap.String("error", span.Status().Description))
			e.logger.Warn(span.Name(), fields...)
			continue
		}
		e.logger.Info(span.Name(), fields...)
	}
	return nil
}

func (e *LogExporter) Shutdown(ctx context.Context) error {
	e.logger.Debug("Log span exporter shut down")
	_ = e.logger.Sync()
	return nil
}
