// Package bookstore is the SQLite-backed catalog served by the book service.
package bookstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fllarpy/frontend-service/domain"
	"github.com/fllarpy/frontend-service/domain/catalog"
	sqlinstrumentation "github.com/fllarpy/frontend-service/instrumentation/sql"
)

const schema = `CREATE TABLE IF NOT EXISTS books (
	id     INTEGER PRIMARY KEY,
	title  TEXT NOT NULL,
	author TEXT NOT NULL
)`

var _ domain.BookLister = (*Store)(nil)

// Store reads books from a traced SQLite handle.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, creates the schema and seeds the catalog. Seeding is
// idempotent, so several stores may share one database.
func Open(ctx context.Context, dsn string, tp trace.TracerProvider, mp metric.MeterProvider) (*Store, error) {
	db, err := sqlinstrumentation.Open("sqlite3", dsn, semconv.DBSystemSqlite, tp, mp)
	if err != nil {
		return nil, err
	}
	// An in-memory database lives as long as its last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	for _, book := range catalog.Seed {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO books (id, title, author) VALUES (?, ?, ?)`,
			book.ID, book.Title, book.Author,
		); err != nil {
			return fmt.Errorf("seed book %d: %w", book.ID, err)
		}
	}
	return nil
}

// ListBooks returns the whole catalog ordered by id.
func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, author FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := make([]catalog.Book, 0, len(catalog.Seed))
	for rows.Next() {
		var b catalog.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
