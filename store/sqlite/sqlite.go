/*
Package sqlite implements every store interface of the back office
(documents.Store, attendance.Store, catalog.Store) on one SQLite database.

KEY TABLES:
  documents          header rows; UNIQUE index on the formatted number
  document_details   detail lines; FK cascade from documents
  document_series    per-series counters (prefix -> last_value)
  attendance_records PRIMARY KEY (employee_id, date) - the one-record-per-
                     employee-day invariant lives here, not in app code
  products           UNIQUE name, UNIQUE code
  employees          reference data for attendance

TRANSACTIONS:
  Domain services get a transaction-scoped view via WithTx/InTx; the
  counter increment, document insert, detail writes and total update all
  commit or roll back together. Unique-constraint violations are sniffed
  from the driver error and mapped to domain sentinels so services can
  retry or reject precisely.

CONCURRENCY:
  A mutex serializes writers, matching SQLite's single-writer model. The
  pool is pinned to one connection: in-memory databases are per-connection,
  and tests run against ":memory:".

MIGRATION:
  Schema is auto-migrated on New(). Counters for legacy databases are
  seeded from existing document numbers via SeedSeries, which refuses to
  seed past a number whose suffix does not parse.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/anta/backoffice/attendance"
	"github.com/anta/backoffice/catalog"
	"github.com/anta/backoffice/documents"
	"github.com/anta/backoffice/sequence"
)

// Store wraps the SQLite database. Obtain domain-facing views through
// Documents, Attendance and Catalog.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One pooled connection: SQLite allows a single writer anyway, and
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		category_id INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_name ON products(name);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_products_code ON products(code);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doc_type TEXT NOT NULL,
		number TEXT NOT NULL,
		client TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		total TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);
	-- Backstop for sequence allocation: a collision surfaces here and the
	-- service retries instead of silently minting a duplicate number.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_number ON documents(number);
	CREATE INDEX IF NOT EXISTS idx_documents_type_created
		ON documents(doc_type, created_at DESC);

	CREATE TABLE IF NOT EXISTS document_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_details_document ON document_details(document_id);

	CREATE TABLE IF NOT EXISTS attendance_records (
		employee_id INTEGER NOT NULL REFERENCES employees(id),
		date TEXT NOT NULL,
		state TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	CREATE TABLE IF NOT EXISTS document_series (
		prefix TEXT PRIMARY KEY,
		last_value INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SeedSeries initializes a series counter from document numbers already in
// the database, for databases migrated from the legacy system. It is a
// no-op when the counter is already at or past the highest stored number.
// A stored number with an unparsable suffix aborts seeding with
// sequence.ErrMalformedNumber; continuing would mint duplicates.
func (s *Store) SeedSeries(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT number FROM documents WHERE number LIKE ?", prefix+"-%")
	if err != nil {
		return err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return err
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	seed, err := sequence.SeedValue(numbers)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_series (prefix, last_value) VALUES (?, ?)
		ON CONFLICT(prefix) DO UPDATE SET last_value = MAX(last_value, excluded.last_value)
	`, prefix, seed)
	return err
}

// Documents returns the documents.Store view.
func (s *Store) Documents() documents.Store {
	return &documentStore{s: s}
}

// Attendance returns the attendance.Store view.
func (s *Store) Attendance() attendance.Store {
	return &attendanceStore{s: s}
}

// Catalog returns the catalog.Store view.
func (s *Store) Catalog() catalog.Store {
	return &catalogStore{s: s}
}

// =============================================================================
// HELPERS
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func constraintOn(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), column)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
