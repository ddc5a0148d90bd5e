package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestRouter() (*mux.Router, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := New(tp,
		Route{Path: "/", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("root"))
		})},
		Route{Path: "/books", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("books"))
		})},
	)
	return r, recorder
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantSpan   string
	}{
		{"root", http.MethodGet, "/", http.StatusOK, "root", "GET /"},
		{"books", http.MethodGet, "/books", http.StatusOK, "books", "GET /books"},
		{"unknown path", http.MethodGet, "/missing", http.StatusNotFound, "", ""},
		{"wrong method", http.MethodPost, "/", http.StatusMethodNotAllowed, "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, recorder := newTestRouter()

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, rr.Body.String())
			}

			ended := recorder.Ended()
			if tc.wantSpan == "" {
				assert.Empty(t, ended, "unrouted requests are not traced")
				return
			}
			require.Len(t, ended, 1)
			assert.Equal(t, tc.wantSpan, ended[0].Name())
		})
	}
}
