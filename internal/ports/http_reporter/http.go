package http_reporter

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewHandler creates an HTTP handler that serves the metrics of gatherer.
// A failing collector is logged and the remaining families are still served.
func NewHandler(gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger.Named("metrics")),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
