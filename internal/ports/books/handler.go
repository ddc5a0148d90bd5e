// Package books serves the catalog of the book service, the upstream the
// frontend forwards to.
package books

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fllarpy/frontend-service/domain"
)

const instrumentationName = "github.com/fllarpy/frontend-service/internal/ports/books"

// Handler serves GET /books from a BookLister.
type Handler struct {
	store    domain.BookLister
	recorder domain.RequestRecorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewHandler returns a Handler recording on recorder and tracing on tp.
func NewHandler(store domain.BookLister, recorder domain.RequestRecorder, tp trace.TracerProvider, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		recorder: recorder,
		tracer:   tp.Tracer(instrumentationName),
		logger:   logger,
	}
}

// List writes the catalog as a JSON array. The query runs inside a
// "books-request" span and its duration is recorded with status 200. A failed
// query goes to the error path unrecorded.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	h.logger.Debug("Received request to /books")
	h.recorder.IncRequests(r.Context())

	ctx, span := h.tracer.Start(r.Context(), "books-request")
	start := time.Now()
	books, err := h.store.ListBooks(ctx)
	elapsed := time.Since(start)
	span.End()
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	h.recorder.ObserveResponseTime(r.Context(), elapsed, http.StatusOK)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(books); err != nil {
		h.logger.Debug("Failed to write books", zap.Error(err))
	}
	return nil
}
