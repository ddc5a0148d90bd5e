// Package router assembles the service's inbound routes.
package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"

	"github.com/fllarpy/frontend-service/internal/adapters/apmhttp"
)

// Route is a GET endpoint served by the application.
type Route struct {
	Path    string
	Handler http.Handler
}

// New registers every route for GET only. Each handler runs inside the
// inbound server span of its route. Unknown paths get 404 and other methods
// on a known path get 405.
func New(tp trace.TracerProvider, routes ...Route) *mux.Router {
	r := mux.NewRouter()
	for _, route := range routes {
		r.Handle(route.Path, apmhttp.Middleware(tp, route.Path, route.Handler)).
			Methods(http.MethodGet)
	}
	return r
}
