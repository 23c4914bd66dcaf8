/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Implements storage for the publisher accounting service: the book
  catalog, authors with per-book royalty rates, sales, and the per-author
  royalty rows that track payment status. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  authors:       Royalty recipients (name unique, case-insensitive)
  books:         Catalog entries (ISBN-13 unique)
  author_books:  Book-author link with the royalty rate
  sales:         One row per sale line item (date normalized to month start)
  author_sales:  Royalty snapshot per sale-author, with paid flag

SNAPSHOT SEMANTICS:
  author_sales rows are written once when a sale is created and are never
  rebuilt on edit, except when the sale's book changes; then the rows are
  rebuilt from the new book's current author set.

MONEY:
  Decimal amounts are stored as TEXT and parsed with shopspring/decimal.
  Sorting by amount casts to REAL in SQL; sums that reach the API are
  always computed in Go on decimals.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL and
  foreign keys on.

USAGE:
  store, err := sqlite.New("./data/royalty.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - catalog.go: author and book persistence
  - sales.go:   sale persistence and payment operations
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced to the API layer.
var (
	// ErrDuplicateISBN13 is returned when a book with the same ISBN-13
	// already exists.
	ErrDuplicateISBN13 = errors.New("a book with this ISBN-13 already exists")
)

// dateLayout is how calendar dates are stored; lexicographic order equals
// chronological order.
const dateLayout = "2006-01-02"

// Store implements all persistence for the service.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Authors (royalty recipients)
	CREATE TABLE IF NOT EXISTS authors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_authors_name
		ON authors(name COLLATE NOCASE);

	-- Books (catalog)
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		publication_date TEXT NOT NULL,
		isbn_13 TEXT NOT NULL UNIQUE,
		isbn_10 TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	CREATE INDEX IF NOT EXISTS idx_books_publication_date ON books(publication_date);

	-- Book-author link with royalty rate. rowid order preserves the
	-- order authors were attached, which defines the "first author".
	CREATE TABLE IF NOT EXISTS author_books (
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		royalty_rate TEXT NOT NULL,
		PRIMARY KEY (book_id, author_id)
	);

	CREATE INDEX IF NOT EXISTS idx_author_books_author ON author_books(author_id);

	-- Sales (one line item per row; sale_date is always the 1st of a month)
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		sale_date TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		publisher_revenue TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sales_book ON sales(book_id);
	CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(sale_date);

	-- Royalty snapshot per sale-author (hot path for payment queries)
	CREATE TABLE IF NOT EXISTS author_sales (
		sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		royalty_amount TEXT NOT NULL,
		author_paid INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (sale_id, author_id)
	);

	CREATE INDEX IF NOT EXISTS idx_author_sales_author
		ON author_sales(author_id, author_paid);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset wipes all data. Only used by demo scenario loading and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"author_sales", "sales", "author_books", "books", "authors"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// PAGINATION
// =============================================================================

// ListMeta describes one page of results.
type ListMeta struct {
	Count      int
	Page       int
	PageSize   int
	TotalPages int
}

// Each list endpoint carries its own default page size.
const (
	defaultListPageSize     = 50
	defaultPaymentsPageSize = 10
)

// clampPaging normalizes page/page_size the way the API contract demands:
// page >= 1, page_size defaulted per endpoint then clamped to [1, 100],
// total_pages never below 1.
func clampPaging(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func pageMeta(total, page, pageSize int, all bool) ListMeta {
	if all {
		return ListMeta{Count: total, Page: 1, PageSize: total, TotalPages: 1}
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return ListMeta{Count: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(v string) time.Time {
	t, _ := time.Parse(dateLayout, v)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders builds "?, ?, ?" for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
