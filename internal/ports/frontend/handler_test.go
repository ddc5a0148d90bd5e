package frontend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	metricdefs "github.com/fllarpy/frontend-service/domain/metrics"
	"github.com/fllarpy/frontend-service/internal/adapters/apmhttp"
	"github.com/fllarpy/frontend-service/internal/adapters/metrics"
	"github.com/fllarpy/frontend-service/internal/ports/httperr"
	"github.com/fllarpy/frontend-service/internal/ports/router"
	"github.com/fllarpy/frontend-service/pkg/config"
)

const booksJSON = `[{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald"}]`

type fixture struct {
	registry *metrics.Registry
	recorder *tracetest.SpanRecorder
	server   *httptest.Server
}

// newFixture serves GET / through the full inbound stack: router, server
// span, error path and an instrumented client pointed at upstreamURL.
func newFixture(t *testing.T, upstreamURL string) *fixture {
	t.Helper()

	registry, err := metrics.NewRegistry(config.MetricsConfig{Prefix: "frontend_service"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Shutdown(context.Background()) })

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	logger := zap.NewNop()
	handler := NewHandler(apmhttp.NewClient(nil, tp), upstreamURL, registry, logger)
	app := router.New(tp, router.Route{Path: "/", Handler: httperr.Handle(logger, handler.Forward)})

	server := httptest.NewServer(app)
	t.Cleanup(server.Close)

	return &fixture{registry: registry, recorder: recorder, server: server}
}

func (f *fixture) get(t *testing.T) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(f.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

// spans waits for the server span, which ends after the response is handed
// to the connection, and returns the server and client spans.
func (f *fixture) spans(t *testing.T) (server, client sdktrace.ReadOnlySpan) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.recorder.Ended()) == 2
	}, time.Second, 5*time.Millisecond)

	for _, span := range f.recorder.Ended() {
		switch span.SpanKind() {
		case trace.SpanKindServer:
			server = span
		case trace.SpanKindClient:
			client = span
		}
	}
	require.NotNil(t, server)
	require.NotNil(t, client)
	return server, client
}

func newUpstream(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)
	return upstream
}

func TestForward_ForwardsUpstreamResponse(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{"success", http.StatusOK, "application/json", booksJSON},
		{"upstream not found", http.StatusNotFound, "text/plain", "not found"},
		{"upstream error", http.StatusInternalServerError, "text/html", "<h1>boom</h1>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			upstream := newUpstream(t, tc.status, tc.contentType, tc.body)
			f := newFixture(t, upstream.URL+"/books")

			status, body, header := f.get(t)

			assert.Equal(t, tc.status, status, "upstream status is forwarded verbatim")
			assert.Equal(t, tc.body, body, "upstream body is forwarded verbatim")
			assert.Equal(t, tc.contentType, header.Get("Content-Type"))

			snapshot, err := f.registry.Snapshot()
			require.NoError(t, err)
			assert.Equal(t, uint64(1), snapshot.TotalRequests)
			assert.Equal(t, uint64(1), snapshot.TotalObservations())

			series, ok := snapshot.ResponseTimes[metricdefs.StatusLabelValue(tc.status)]
			require.True(t, ok, "observation must be labelled with the upstream status")
			assert.Equal(t, uint64(1), series.Count)
			assert.GreaterOrEqual(t, series.SumMs, float64(0))
		})
	}
}

func TestForward_TransportFailure(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	refusedURL := upstream.URL + "/books"
	upstream.Close()

	f := newFixture(t, refusedURL)

	status, body, _ := f.get(t)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body, "refused")

	snapshot, err := f.registry.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snapshot.TotalRequests, "a failed request is still counted")
	assert.Zero(t, snapshot.TotalObservations(), "a failed request records no response time")

	server, client := f.spans(t)
	assert.Equal(t, codes.Error, client.Status().Code)
	assert.Equal(t, server.SpanContext().SpanID(), client.Parent().SpanID())
}

func TestForward_SpanParenting(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, "application/json", booksJSON)
	f := newFixture(t, upstream.URL+"/books")

	status, _, _ := f.get(t)
	require.Equal(t, http.StatusOK, status)

	server, client := f.spans(t)

	assert.Equal(t, "GET /", server.Name())
	assert.False(t, server.Parent().IsValid())
	assert.Equal(t, server.SpanContext().TraceID(), client.SpanContext().TraceID())
	assert.Equal(t, server.SpanContext().SpanID(), client.Parent().SpanID())
	assert.False(t, client.EndTime().After(server.EndTime()), "the client span ends within the server span")
}

func TestForward_Concurrent(t *testing.T) {
	const requests = 100

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(booksJSON))
	}))
	defer upstream.Close()

	f := newFixture(t, upstream.URL+"/books")

	var g errgroup.Group
	for i := 0; i < requests; i++ {
		g.Go(func() error {
			resp, err := http.Get(f.server.URL + "/")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, booksJSON, string(body))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	snapshot, err := f.registry.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(requests), snapshot.TotalRequests)
	assert.Equal(t, uint64(requests), snapshot.ResponseTimes["200"].Count)
}

type fakeRecorder struct {
	mu           sync.Mutex
	requests     int
	observations []observation
}

type observation struct {
	elapsed    time.Duration
	statusCode int
}

func (r *fakeRecorder) IncRequests(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func (r *fakeRecorder) ObserveResponseTime(_ context.Context, elapsed time.Duration, statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation{elapsed: elapsed, statusCode: statusCode})
}

func TestForward_MeasuresWithClock(t *testing.T) {
	upstream := newUpstream(t, http.StatusCreated, "", "created")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(150 * time.Millisecond)}
	var calls int
	clock := func() time.Time {
		now := ticks[calls]
		calls++
		return now
	}

	recorder := &fakeRecorder{}
	handler := NewHandler(http.DefaultClient, upstream.URL, recorder, zap.NewNop(), WithClock(clock))

	rr := httptest.NewRecorder()
	require.NoError(t, handler.Forward(rr, httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "created", rr.Body.String())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, recorder.requests)
	require.Len(t, recorder.observations, 1)
	assert.Equal(t, observation{elapsed: 150 * time.Millisecond, statusCode: http.StatusCreated}, recorder.observations[0])
}

func TestForward_ReturnsTransportError(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	recorder := &fakeRecorder{}
	handler := NewHandler(http.DefaultClient, url, recorder, zap.NewNop())

	rr := httptest.NewRecorder()
	err := handler.Forward(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Error(t, err)
	assert.Equal(t, 1, recorder.requests)
	assert.Empty(t, recorder.observations)
	assert.Empty(t, rr.Body.String(), "nothing is written before the error path runs")
}

func TestForward_IgnoresCallerCancellation(t *testing.T) {
	received := make(chan struct{}, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	recorder := &fakeRecorder{}
	handler := NewHandler(http.DefaultClient, upstream.URL, recorder, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	rr := httptest.NewRecorder()
	require.NoError(t, handler.Forward(rr, req))

	assert.Len(t, received, 1, "the upstream call is made even though the caller left")
	require.Len(t, recorder.observations, 1)
	assert.Equal(t, http.StatusOK, recorder.observations[0].statusCode)
}
