package domain

import (
	"context"
	"time"

	"github.com/fllarpy/frontend-service/domain/catalog"
)

// RequestRecorder is the request-scoped measurement contract. Both methods
// always succeed and never block the caller.
type RequestRecorder interface {
	// IncRequests adds one to the total request counter.
	IncRequests(ctx context.Context)
	// ObserveResponseTime records one latency sample labelled with the
	// HTTP status code of the measured response.
	ObserveResponseTime(ctx context.Context, elapsed time.Duration, statusCode int)
}

// BookLister reads the book catalog served by the upstream service.
type BookLister interface {
	ListBooks(ctx context.Context) ([]catalog.Book, error)
}
