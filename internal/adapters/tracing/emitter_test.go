package tracing

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fllarpy/frontend-service/pkg/config"
)

func tracingConfig(exporter string) config.TracingConfig {
	cfg := config.FrontendDefaults().Tracing
	cfg.Exporter = exporter
	cfg.BatchTimeout = 10 * time.Millisecond
	return cfg
}

func TestEmitter_ResourceAndProcessor(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	emitter, err := NewEmitter(context.Background(), tracingConfig(config.ExporterNone), "frontend_service", zap.NewNop(), WithSpanProcessor(recorder))
	require.NoError(t, err)

	_, span := emitter.TracerProvider().Tracer("test").Start(context.Background(), "work")
	span.End()

	require.NoError(t, emitter.Shutdown(context.Background()))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "work", ended[0].Name())

	name, ok := ended[0].Resource().Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "frontend_service", name.AsString())
}

func TestEmitter_JaegerSendsOverUDP(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	defer conn.Close()

	cfg := tracingConfig(config.ExporterJaeger)
	cfg.JaegerHost = "127.0.0.1"
	cfg.JaegerPort = strconv.Itoa(conn.LocalAddr().(*net.UDPAddr).Port)

	emitter, err := NewEmitter(context.Background(), cfg, "frontend_service", zap.NewNop())
	require.NoError(t, err)

	_, span := emitter.TracerProvider().Tracer("test").Start(context.Background(), "GET /")
	span.End()

	// Shutdown flushes the batch processor.
	require.NoError(t, emitter.Shutdown(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 65535)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err, "expected a span batch on the agent port")
	assert.True(t, bytes.Contains(buf[:n], []byte("frontend_service")), "batch should carry the service name")
	assert.True(t, bytes.Contains(buf[:n], []byte("GET /")), "batch should carry the span name")
}

func TestEmitter_JaegerUnreachableCollectorDoesNotFail(t *testing.T) {
	cfg := tracingConfig(config.ExporterJaeger)
	cfg.JaegerHost = "jaeger.invalid"

	emitter, err := NewEmitter(context.Background(), cfg, "frontend_service", zap.NewNop())
	require.NoError(t, err, "an unresolvable collector must not prevent startup")

	_, span := emitter.TracerProvider().Tracer("test").Start(context.Background(), "GET /")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = emitter.Shutdown(ctx)
}

func TestEmitter_LogExporter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	emitter, err := NewEmitter(context.Background(), tracingConfig(config.ExporterLog), "frontend_service", zap.New(core))
	require.NoError(t, err)

	_, span := emitter.TracerProvider().Tracer("test").Start(context.Background(), "GET /")
	span.End()
	require.NoError(t, emitter.Shutdown(context.Background()))

	entries := logs.FilterMessage("GET /").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "frontend_service", entries[0].ContextMap()["service"])
}

func TestEmitter_OTLPExporterIsLazy(t *testing.T) {
	cfg := tracingConfig(config.ExporterOTLP)
	cfg.OTLPEndpoint = "127.0.0.1:1"

	emitter, err := NewEmitter(context.Background(), cfg, "frontend_service", zap.NewNop())
	require.NoError(t, err, "the otlp exporter connects on export, not on creation")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = emitter.Shutdown(ctx)
}

func TestEmitter_UnknownExporter(t *testing.T) {
	_, err := NewEmitter(context.Background(), tracingConfig("zipkin"), "frontend_service", zap.NewNop())
	assert.Error(t, err)
}
