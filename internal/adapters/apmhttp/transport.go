package apmhttp

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transport is an http.RoundTripper that tags the client span opened by the
// enclosing otelhttp transport with the target URL and the outcome.
type Transport struct {
	// Base is the underlying RoundTripper to execute the request.
	// If nil, http.DefaultTransport is used.
	Base http.RoundTripper
}

// RoundTrip executes a single HTTP transaction inside the current client span.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	span := trace.SpanFromContext(req.Context())
	span.SetAttributes(attribute.String("http.url", req.URL.String()))

	resp, err := base.RoundTrip(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// NewTransport returns a RoundTripper that opens one client span per call,
// injects trace context into the outbound headers and records the target URL
// and resulting status (or failure). The span ends when the response body is
// fully read or closed.
func NewTransport(base http.RoundTripper, tp trace.TracerProvider) http.RoundTripper {
	return otelhttp.NewTransport(&Transport{Base: base},
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(propagators),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}

// NewClient returns a copy of base whose transport is traced. A nil base
// yields a client with default settings.
func NewClient(base *http.Client, tp trace.TracerProvider) *http.Client {
	// Create a new client to avoid modifying the base client's transport.
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = NewTransport(client.Transport, tp)
	return client
}
