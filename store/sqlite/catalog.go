/*
catalog.go - Author and book persistence

PURPOSE:
  CRUD for the catalog side of the store: authors (create-if-not-exists by
  case-insensitive name) and books with their author links. Book listing
  carries the search, filter, sort, and pagination behavior the catalog
  pages rely on.

DERIVED FIELDS:
  total_sales_to_date is computed from sale quantities via subquery, never
  stored, so deleting or editing a sale can't leave a stale counter.
  "First author" means the first author attached to the book (rowid order
  on author_books).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
)

// =============================================================================
// AUTHORS
// =============================================================================

// GetOrCreateAuthor returns the author with the given name, creating it if
// absent. The lookup is case-insensitive. Returns the author and whether
// it was created.
func (s *Store) GetOrCreateAuthor(ctx context.Context, name, bio string) (*catalog.Author, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, err := s.findAuthorByName(ctx, name); err != nil {
		return nil, false, err
	} else if a != nil {
		return a, false, nil
	}

	author := catalog.Author{ID: newID(""), Name: name, Bio: bio}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (id, name, bio, created_at) VALUES (?, ?, ?, ?)`,
		author.ID, author.Name, author.Bio, nowUTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race; the row exists now.
			a, ferr := s.findAuthorByName(ctx, name)
			if ferr == nil && a != nil {
				return a, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create author: %w", err)
	}
	return &author, true, nil
}

func (s *Store) findAuthorByName(ctx context.Context, name string) (*catalog.Author, error) {
	var a catalog.Author
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, bio FROM authors WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&a.ID, &a.Name, &a.Bio)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAuthor returns an author by id, or nil if not found.
func (s *Store) GetAuthor(ctx context.Context, id string) (*catalog.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a catalog.Author
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, bio FROM authors WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Bio)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAuthors returns all authors ordered by name.
func (s *Store) ListAuthors(ctx context.Context) ([]catalog.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, bio FROM authors ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []catalog.Author
	for rows.Next() {
		var a catalog.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// =============================================================================
// BOOKS
// =============================================================================

// totalSalesExpr computes total_sales_to_date from sale quantities.
// A subquery avoids join multiplication when search joins authors.
const totalSalesExpr = `IFNULL((SELECT SUM(s.quantity) FROM sales s WHERE s.book_id = b.id), 0)`

const firstAuthorNameExpr = `(SELECT a.name FROM author_books ab JOIN authors a ON a.id = ab.author_id
		WHERE ab.book_id = b.id ORDER BY ab.rowid LIMIT 1)`

const firstAuthorRateExpr = `(SELECT CAST(ab.royalty_rate AS REAL) FROM author_books ab
		WHERE ab.book_id = b.id ORDER BY ab.rowid LIMIT 1)`

// CreateBook persists a book and its author links atomically.
// Returns ErrDuplicateISBN13 if the ISBN-13 is taken.
func (s *Store) CreateBook(ctx context.Context, book catalog.Book) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book.ID = newID(book.ID)
	now := nowUTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO books (id, title, publication_date, isbn_13, isbn_10, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			book.ID, book.Title, book.PublicationDate.Format(dateLayout),
			book.ISBN13, nullString(book.ISBN10), now, now,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateISBN13
			}
			return fmt.Errorf("failed to insert book: %w", err)
		}
		return insertShares(ctx, tx, book.ID, book.Authors)
	})
	if err != nil {
		return nil, err
	}

	return s.getBook(ctx, book.ID)
}

// UpdateBook applies changed fields to an existing book. When
// replaceAuthors is true, the author set is replaced with book.Authors.
// Returns nil if the book does not exist.
func (s *Store) UpdateBook(ctx context.Context, book catalog.Book, replaceAuthors bool) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE id = ?`, book.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE books SET title = ?, publication_date = ?, isbn_13 = ?, isbn_10 = ?, updated_at = ?
			 WHERE id = ?`,
			book.Title, book.PublicationDate.Format(dateLayout),
			book.ISBN13, nullString(book.ISBN10), nowUTC(), book.ID,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateISBN13
			}
			return fmt.Errorf("failed to update book: %w", err)
		}

		if replaceAuthors {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM author_books WHERE book_id = ?`, book.ID); err != nil {
				return err
			}
			return insertShares(ctx, tx, book.ID, book.Authors)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.getBook(ctx, book.ID)
}

func insertShares(ctx context.Context, tx *sql.Tx, bookID string, shares []royalty.AuthorShare) error {
	for _, share := range shares {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO author_books (book_id, author_id, royalty_rate) VALUES (?, ?, ?)`,
			bookID, share.AuthorID, share.Rate.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to link author %s: %w", share.AuthorID, err)
		}
	}
	return nil
}

// DeleteBook removes a book and, via cascade, its links and sales.
// Returns whether a row was deleted.
func (s *Store) DeleteBook(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetBook returns a book with its author shares and computed sales total,
// or nil if not found.
func (s *Store) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBook(ctx, id)
}

func (s *Store) getBook(ctx context.Context, id string) (*catalog.Book, error) {
	var (
		b       catalog.Book
		pubDate string
		isbn10  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT b.id, b.title, b.publication_date, b.isbn_13, b.isbn_10, `+totalSalesExpr+`
		 FROM books b WHERE b.id = ?`, id,
	).Scan(&b.ID, &b.Title, &pubDate, &b.ISBN13, &isbn10, &b.TotalSalesToDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.PublicationDate = parseDate(pubDate)
	b.ISBN10 = isbn10.String

	shares, err := s.loadShares(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.Authors = shares[b.ID]
	return &b, nil
}

// loadShares fetches author shares for a set of books, preserving the
// order authors were attached.
func (s *Store) loadShares(ctx context.Context, bookIDs []string) (map[string][]royalty.AuthorShare, error) {
	out := make(map[string][]royalty.AuthorShare, len(bookIDs))
	if len(bookIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ab.book_id, ab.author_id, a.name, ab.royalty_rate
		 FROM author_books ab
		 JOIN authors a ON a.id = ab.author_id
		 WHERE ab.book_id IN (`+placeholders(len(bookIDs))+`)
		 ORDER BY ab.rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var bookID, rate string
		var share royalty.AuthorShare
		if err := rows.Scan(&bookID, &share.AuthorID, &share.Name, &rate); err != nil {
			return nil, err
		}
		share.Rate = parseDecimal(rate)
		out[bookID] = append(out[bookID], share)
	}
	return out, rows.Err()
}

// =============================================================================
// BOOK LISTING
// =============================================================================

// BookListOptions controls search, filtering, sorting and pagination.
type BookListOptions struct {
	Query           string // matches title, author name, ISBN-13/10
	PublishedBefore string // YYYY-MM-DD, inclusive
	OrderBy         string // whitelisted field, "-" prefix for descending
	Page            int
	PageSize        int
	All             bool
}

// bookSortFields whitelists ordering inputs. Values are SQL expressions or
// selected aliases.
var bookSortFields = map[string]string{
	"title":                     "b.title",
	"isbn_13":                   "b.isbn_13",
	"isbn_10":                   "b.isbn_10",
	"publication_date":          "b.publication_date",
	"id":                        "b.id",
	"total_sales_to_date":       "total_sales_to_date",
	"first_author_name":         "first_author_name",
	"first_author_royalty_rate": "first_author_royalty_rate",
}

// ListBooks returns one page of books matching the options.
func (s *Store) ListBooks(ctx context.Context, opts BookListOptions) ([]catalog.Book, ListMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := bookFilters(opts)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books b`+where, args...).Scan(&total); err != nil {
		return nil, ListMeta{}, err
	}

	query := `SELECT b.id, b.title, b.publication_date, b.isbn_13, b.isbn_10,
		` + totalSalesExpr + ` AS total_sales_to_date,
		` + firstAuthorNameExpr + ` AS first_author_name,
		` + firstAuthorRateExpr + ` AS first_author_royalty_rate
		FROM books b` + where + bookOrderClause(opts.OrderBy)

	page, pageSize := clampPaging(opts.Page, opts.PageSize, defaultListPageSize)
	if !opts.All {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ListMeta{}, err
	}
	defer rows.Close()

	var (
		books []catalog.Book
		ids   []string
	)
	for rows.Next() {
		var (
			b         catalog.Book
			pubDate   string
			isbn10    sql.NullString
			firstName sql.NullString
			firstRate sql.NullFloat64
		)
		if err := rows.Scan(&b.ID, &b.Title, &pubDate, &b.ISBN13, &isbn10,
			&b.TotalSalesToDate, &firstName, &firstRate); err != nil {
			return nil, ListMeta{}, err
		}
		b.PublicationDate = parseDate(pubDate)
		b.ISBN10 = isbn10.String
		books = append(books, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, ListMeta{}, err
	}

	shares, err := s.loadShares(ctx, ids)
	if err != nil {
		return nil, ListMeta{}, err
	}
	for i := range books {
		books[i].Authors = shares[books[i].ID]
	}

	return books, pageMeta(total, page, pageSize, opts.All), nil
}

func bookFilters(opts BookListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if opts.Query != "" {
		like := "%" + opts.Query + "%"
		isbnLike := "%" + catalog.NormalizeISBN(opts.Query) + "%"
		conds = append(conds, `(b.title LIKE ? OR b.isbn_13 LIKE ? OR b.isbn_10 LIKE ?
			OR EXISTS (SELECT 1 FROM author_books ab JOIN authors a ON a.id = ab.author_id
				WHERE ab.book_id = b.id AND a.name LIKE ?))`)
		args = append(args, like, isbnLike, isbnLike, like)
	}
	if opts.PublishedBefore != "" {
		conds = append(conds, `b.publication_date <= ?`)
		args = append(args, opts.PublishedBefore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + joinAnd(conds), args
}

func joinAnd(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

func bookOrderClause(ordering string) string {
	field := ordering
	desc := false
	if len(field) > 0 && field[0] == '-' {
		desc = true
		field = field[1:]
	}

	expr, ok := bookSortFields[field]
	if !ok {
		expr, desc = "b.title", false
	}

	dir := " ASC"
	if desc {
		dir = " DESC"
	}

	// Books with no authors sort last on author-derived fields.
	if field == "first_author_name" || field == "first_author_royalty_rate" {
		return ` ORDER BY (` + expr + ` IS NULL), ` + expr + dir + `, b.id`
	}
	return ` ORDER BY ` + expr + dir + `, b.id`
}
