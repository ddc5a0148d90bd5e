package frontend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fllarpy/frontend-service/domain"
)

// Handler forwards inbound requests to one upstream URL.
type Handler struct {
	client      *http.Client
	upstreamURL string
	recorder    domain.RequestRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces time.Now as the source of the measured interval.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler returns a Handler that sends GET upstreamURL through client and
// records each request on recorder.
func NewHandler(client *http.Client, upstreamURL string, recorder domain.RequestRecorder, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		client:      client,
		upstreamURL: upstreamURL,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Forward counts the request, calls the upstream and writes its status,
// Content-Type and body back verbatim, whatever the status. The response time
// covers the call and the full body read and is labelled with the upstream
// status.
//
// A transport failure is returned as is and leaves the histogram untouched;
// the request stays counted.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	h.recorder.IncRequests(ctx)

	// The upstream call keeps the inbound span as parent but is not aborted
	// when the caller goes away.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, h.upstreamURL, nil)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}

	start := h.now()
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	elapsed := h.now().Sub(start)

	h.recorder.ObserveResponseTime(ctx, elapsed, resp.StatusCode)

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		// Headers are already sent, nothing left to report to the client.
		h.logger.Debug("Failed to write response body", zap.Error(err))
		return nil
	}

	h.logger.Debug("Forwarded request",
		zap.String("upstream", h.upstreamURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}
