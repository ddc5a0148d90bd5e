// Package sql opens database handles whose statements are traced and whose
// connection pool statistics are published as metrics.
package sql

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Open is sql.Open with one client span per statement on tp and pool stats on
// mp. system identifies the database in span attributes, e.g.
// semconv.DBSystemSqlite.
func Open(driverName, dataSourceName string, system attribute.KeyValue, tp trace.TracerProvider, mp metric.MeterProvider) (*sql.DB, error) {
	db, err := otelsql.Open(driverName, dataSourceName,
		otelsql.WithAttributes(system),
		otelsql.WithTracerProvider(tp),
		otelsql.WithMeterProvider(mp),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableErrSkip: true,
			OmitRows:       true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(system),
		otelsql.WithMeterProvider(mp),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("register db stats metrics: %w", err)
	}

	return db, nil
}
