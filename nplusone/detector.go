// Package nplusone flags traces that run the same SQL statement over and over,
// the usual sign of a query issued once per item instead of once per list.
package nplusone

import (
	"context"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	traceTTL        = 2 * time.Minute
	cleanupInterval = time.Minute
)

type queryInfo struct {
	count    int
	reported bool
}

type traceData struct {
	queries  map[string]*queryInfo
	lastSeen time.Time
}

// Detector is a span processor that counts database statements per trace and
// logs a warning once a statement reaches the threshold within one trace.
// A trace is forgotten when its server span ends or after it goes quiet.
type Detector struct {
	threshold int
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	traces map[trace.TraceID]*traceData

	done     chan struct{}
	stopOnce sync.Once
}

var _ sdktrace.SpanProcessor = (*Detector)(nil)

func NewDetector(threshold int, logger *zap.Logger) *Detector {
	logger.Info("Initializing N+1 query detector", zap.Int("threshold", threshold))
	d := &Detector{
		threshold: threshold,
		logger:    logger.Named("nplusone"),
		now:       time.Now,
		traces:    make(map[trace.TraceID]*traceData),
		done:      make(chan struct{}),
	}
	go d.cleanupLoop()
	return d
}

func (d *Detector) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (d *Detector) OnEnd(span sdktrace.ReadOnlySpan) {
	traceID := span.SpanContext().TraceID()

	if span.SpanKind() == trace.SpanKindServer {
		d.mu.Lock()
		delete(d.traces, traceID)
		d.mu.Unlock()
		return
	}

	statement, ok := dbStatement(span)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	td, ok := d.traces[traceID]
	if !ok {
		td = &traceData{queries: make(map[string]*queryInfo)}
		d.traces[traceID] = td
	}
	td.lastSeen = d.now()

	q, ok := td.queries[statement]
	if !ok {
		q = &queryInfo{}
		td.queries[statement] = q
	}
	q.count++

	if q.count >= d.threshold && !q.reported {
		q.reported = true
		d.logger.Warn("Repeated query detected",
			zap.String("trace_id", traceID.String()),
			zap.String("statement", statement),
			zap.Int("count", q.count),
		)
	}
}

func dbStatement(span sdktrace.ReadOnlySpan) (string, bool) {
	var isDB bool
	var statement string
	for _, attr := range span.Attributes() {
		switch attr.Key {
		case semconv.DBSystemKey:
			isDB = true
		case semconv.DBStatementKey:
			statement = attr.Value.AsString()
		}
	}
	return statement, isDB && statement != ""
}

// Tracked returns the number of traces currently held.
func (d *Detector) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.traces)
}

func (d *Detector) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.cleanupOldTraces()
		case <-d.done:
			return
		}
	}
}

func (d *Detector) cleanupOldTraces() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cleaned := 0
	for traceID, data := range d.traces {
		if now.Sub(data.lastSeen) > traceTTL {
			delete(d.traces, traceID)
			cleaned++
		}
	}
	if cleaned > 0 {
		d.logger.Debug("Cleaned up stale traces", zap.Int("count", cleaned))
	}
}

func (d *Detector) Shutdown(context.Context) error {
	d.stopOnce.Do(func() { close(d.done) })
	return nil
}

func (d *Detector) ForceFlush(context.Context) error {
	return nil
}
