// Package httperr is the unhandled-failure path shared by all handlers. A
// handler returns an error instead of writing a failure response itself; the
// error is logged and the client receives a generic 500.
package httperr

import (
	"net/http"

	"go.uber.org/zap"
)

// HandlerFunc is an http handler that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn to http.Handler. A returned error is logged with the
// request method and path and answered with 500 Internal Server Error and a
// generic body that does not leak the error text.
func Handle(logger *zap.Logger, fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			logger.Error("Unhandled request failure",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}
