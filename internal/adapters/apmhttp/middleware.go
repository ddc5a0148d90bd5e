package apmhttp

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var propagators = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Middleware wraps next so each inbound request runs inside a root server span
// named "<METHOD> <route>" and tagged with the route and method. The span
// covers the full execution of next, including the error path.
func Middleware(tp trace.TracerProvider, route string, next http.Handler) http.Handler {
	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", r.Method),
		)
		next.ServeHTTP(w, r)
	})

	return otelhttp.NewHandler(tagged, route,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(propagators),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + route
		}),
	)
}
