/*
sales.go - Sale persistence and payment operations

PURPOSE:
  Sale line items with their author_sales royalty snapshot, the filtered/
  sorted/paginated listing behind the sales table, and the payment
  operations (pay all authors of a sale, pay all unpaid sales of an
  author, subtotals, author-grouped payment rows).

EDIT SEMANTICS:
  UpdateSale never rebuilds author_sales rows - they are a historical
  snapshot - EXCEPT when the sale's book changes during the edit. Then the
  rows are rebuilt from the new book's current author set, honoring any
  explicit overrides in the incoming payload.

BULK CREATE:
  CreateSaleBatch is all-or-nothing: one transaction for every line item.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/sales"
)

// SaleRecord is a persisted sale with its denormalized display fields and
// author royalty rows.
type SaleRecord struct {
	ID               string
	BookID           string
	BookTitle        string
	Date             time.Time
	Quantity         int
	PublisherRevenue decimal.Decimal
	Authors          []sales.AuthorRoyalty
}

// =============================================================================
// CREATE
// =============================================================================

// CreateSale persists a line item and its royalty snapshot atomically.
func (s *Store) CreateSale(ctx context.Context, item sales.LineItem, rows []sales.AuthorRoyalty) (*SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertSale(ctx, tx, item, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.getSale(ctx, id)
}

// CreateSaleBatch persists multiple line items atomically: either every
// sale is written or none are.
func (s *Store) CreateSaleBatch(ctx context.Context, items []sales.LineItem, rowsPerItem [][]sales.AuthorRoyalty) ([]*SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(items))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for i, item := range items {
			id, err := insertSale(ctx, tx, item, rowsPerItem[i])
			if err != nil {
				return fmt.Errorf("sale %d: %w", i, err)
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]*SaleRecord, len(ids))
	for i, id := range ids {
		rec, err := s.getSale(ctx, id)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func insertSale(ctx context.Context, tx *sql.Tx, item sales.LineItem, rows []sales.AuthorRoyalty) (string, error) {
	id := newID(item.ID)
	now := nowUTC()

	_, err := tx.ExecContext(ctx,
		`INSERT INTO sales (id, book_id, sale_date, quantity, publisher_revenue, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, item.BookID, item.Date.FirstDay().Format(dateLayout),
		item.Quantity, item.PublisherRevenue.StringFixed(2), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert sale: %w", err)
	}

	for _, row := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO author_sales (sale_id, author_id, royalty_amount, author_paid)
			 VALUES (?, ?, ?, ?)`,
			id, row.AuthorID, row.Amount.StringFixed(2), row.Paid,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert author royalty: %w", err)
		}
	}
	return id, nil
}

// =============================================================================
// READ
// =============================================================================

// GetSale returns a sale with its author rows, or nil if not found.
func (s *Store) GetSale(ctx context.Context, id string) (*SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSale(ctx, id)
}

func (s *Store) getSale(ctx context.Context, id string) (*SaleRecord, error) {
	var (
		rec      SaleRecord
		saleDate string
		revenue  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.book_id, b.title, s.sale_date, s.quantity, s.publisher_revenue
		 FROM sales s JOIN books b ON b.id = s.book_id
		 WHERE s.id = ?`, id,
	).Scan(&rec.ID, &rec.BookID, &rec.BookTitle, &saleDate, &rec.Quantity, &revenue)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Date = parseDate(saleDate)
	rec.PublisherRevenue = parseDecimal(revenue)

	byID, err := s.loadAuthorRows(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	rec.Authors = byID[id]
	return &rec, nil
}

// loadAuthorRows fetches author royalty rows for a set of sales, in the
// order the rows were written.
func (s *Store) loadAuthorRows(ctx context.Context, saleIDs []string) (map[string][]sales.AuthorRoyalty, error) {
	out := make(map[string][]sales.AuthorRoyalty, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(saleIDs))
	for i, id := range saleIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT asl.sale_id, asl.author_id, a.name, asl.royalty_amount, asl.author_paid
		 FROM author_sales asl
		 JOIN authors a ON a.id = asl.author_id
		 WHERE asl.sale_id IN (`+placeholders(len(saleIDs))+`)
		 ORDER BY asl.rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID string
			row    sales.AuthorRoyalty
			amount string
		)
		if err := rows.Scan(&saleID, &row.AuthorID, &row.Name, &amount, &row.Paid); err != nil {
			return nil, err
		}
		row.Amount = parseDecimal(amount)
		out[saleID] = append(out[saleID], row)
	}
	return out, rows.Err()
}

// =============================================================================
// LISTING
// =============================================================================

// SaleListOptions controls filtering, sorting and pagination of sales.
// Start/End are month-granular: the filter always covers whole months.
type SaleListOptions struct {
	BookID   string
	Start    *sales.Month
	End      *sales.Month
	OrderBy  string // whitelisted sort key, "-" prefix for descending
	Page     int
	PageSize int
	All      bool
}

// saleSortFields maps the API's sort keys to SQL expressions. Keep in sync
// with the table columns the client offers.
var saleSortFields = map[string]string{
	"date":              "s.sale_date",
	"quantity":          "s.quantity",
	"publisher_revenue": "CAST(s.publisher_revenue AS REAL)",
	"book_title":        "b.title",
	"authors":           "first_author_name",
	"total_royalties":   "total_royalties",
	"paid_status":       "paid_status_order",
}

const saleComputedCols = `
	IFNULL((SELECT SUM(CAST(x.royalty_amount AS REAL)) FROM author_sales x WHERE x.sale_id = s.id), 0) AS total_royalties,
	(SELECT a.name FROM author_books ab JOIN authors a ON a.id = ab.author_id
		WHERE ab.book_id = s.book_id ORDER BY ab.rowid LIMIT 1) AS first_author_name,
	CASE
		WHEN (SELECT COUNT(*) FROM author_sales x WHERE x.sale_id = s.id AND x.author_paid = 0) = 0
			AND (SELECT COUNT(*) FROM author_sales x WHERE x.sale_id = s.id) > 0 THEN 0
		WHEN (SELECT COUNT(*) FROM author_sales x WHERE x.sale_id = s.id AND x.author_paid = 1) > 0
			AND (SELECT COUNT(*) FROM author_sales x WHERE x.sale_id = s.id AND x.author_paid = 0) > 0 THEN 1
		ELSE 2
	END AS paid_status_order`

// ListSales returns one page of sales matching the options.
func (s *Store) ListSales(ctx context.Context, opts SaleListOptions) ([]*SaleRecord, ListMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := saleFilters(opts)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales s JOIN books b ON b.id = s.book_id`+where, args...,
	).Scan(&total); err != nil {
		return nil, ListMeta{}, err
	}

	query := `SELECT s.id, s.book_id, b.title, s.sale_date, s.quantity, s.publisher_revenue,` +
		saleComputedCols +
		` FROM sales s JOIN books b ON b.id = s.book_id` + where + saleOrderClause(opts.OrderBy)

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
		records []*SaleRecord
		ids     []string
	)
	for rows.Next() {
		var (
			rec       SaleRecord
			saleDate  string
			revenue   string
			totalRoy  float64
			firstName sql.NullString
			paidOrder int
		)
		if err := rows.Scan(&rec.ID, &rec.BookID, &rec.BookTitle, &saleDate, &rec.Quantity,
			&revenue, &totalRoy, &firstName, &paidOrder); err != nil {
			return nil, ListMeta{}, err
		}
		rec.Date = parseDate(saleDate)
		rec.PublisherRevenue = parseDecimal(revenue)
		records = append(records, &rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, ListMeta{}, err
	}

	authorRows, err := s.loadAuthorRows(ctx, ids)
	if err != nil {
		return nil, ListMeta{}, err
	}
	for _, rec := range records {
		rec.Authors = authorRows[rec.ID]
	}

	return records, pageMeta(total, page, pageSize, opts.All), nil
}

func saleFilters(opts SaleListOptions) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if opts.BookID != "" {
		conds = append(conds, `s.book_id = ?`)
		args = append(args, opts.BookID)
	}
	if opts.Start != nil {
		conds = append(conds, `s.sale_date >= ?`)
		args = append(args, opts.Start.FirstDay().Format(dateLayout))
	}
	if opts.End != nil {
		conds = append(conds, `s.sale_date <= ?`)
		args = append(args, opts.End.LastDay().Format(dateLayout))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + joinAnd(conds), args
}

func saleOrderClause(ordering string) string {
	field := ordering
	desc := false
	if len(field) > 0 && field[0] == '-' {
		desc = true
		field = field[1:]
	}

	expr, ok := saleSortFields[field]
	if !ok {
		// Default sort: newest sales first.
		expr, desc = "s.sale_date", true
	}

	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return ` ORDER BY ` + expr + dir + `, s.id`
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

// UpdateSale applies an edited line item. AuthorRoyalties and AuthorPaid
// on the item are explicit overrides from the request.
//
// When the book is unchanged, overrides are applied to EXISTING author
// rows only - the snapshot is historical and is not rebuilt. When the
// book changed, the author rows are rebuilt from the new book's author
// set. Returns nil if the sale does not exist.
func (s *Store) UpdateSale(ctx context.Context, item sales.LineItem) (*SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldBookID string
	err := s.db.QueryRowContext(ctx,
		`SELECT book_id FROM sales WHERE id = ?`, item.ID).Scan(&oldBookID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE sales SET book_id = ?, sale_date = ?, quantity = ?, publisher_revenue = ?, updated_at = ?
			 WHERE id = ?`,
			item.BookID, item.Date.FirstDay().Format(dateLayout),
			item.Quantity, item.PublisherRevenue.StringFixed(2), nowUTC(), item.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}

		if item.BookID != oldBookID {
			return rebuildAuthorRows(ctx, tx, item)
		}
		return applyRowOverrides(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	return s.getSale(ctx, item.ID)
}

// rebuildAuthorRows replaces the royalty snapshot with rows for the newly
// selected book's authors: override amounts where provided, otherwise
// revenue x rate.
func rebuildAuthorRows(ctx context.Context, tx *sql.Tx, item sales.LineItem) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM author_sales WHERE sale_id = ?`, item.ID); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT author_id, royalty_rate FROM author_books WHERE book_id = ? ORDER BY rowid`,
		item.BookID)
	if err != nil {
		return err
	}

	type share struct {
		authorID string
		rate     decimal.Decimal
	}
	var shares []share
	for rows.Next() {
		var sh share
		var rate string
		if err := rows.Scan(&sh.authorID, &rate); err != nil {
			rows.Close()
			return err
		}
		sh.rate = parseDecimal(rate)
		shares = append(shares, sh)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, sh := range shares {
		amount, ok := item.AuthorRoyalties[sh.authorID]
		var amt decimal.Decimal
		if ok {
			amt = parseDecimal(amount)
		} else {
			amt = item.PublisherRevenue.Mul(sh.rate).Round(2)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO author_sales (sale_id, author_id, royalty_amount, author_paid)
			 VALUES (?, ?, ?, ?)`,
			item.ID, sh.authorID, amt.StringFixed(2), item.AuthorPaid[sh.authorID],
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// applyRowOverrides updates existing author rows in place; rows are never
// added or removed here.
func applyRowOverrides(ctx context.Context, tx *sql.Tx, item sales.LineItem) error {
	for authorID, amount := range item.AuthorRoyalties {
		_, err := tx.ExecContext(ctx,
			`UPDATE author_sales SET royalty_amount = ? WHERE sale_id = ? AND author_id = ?`,
			parseDecimal(amount).StringFixed(2), item.ID, authorID,
		)
		if err != nil {
			return err
		}
	}
	for authorID, paid := range item.AuthorPaid {
		_, err := tx.ExecContext(ctx,
			`UPDATE author_sales SET author_paid = ? WHERE sale_id = ? AND author_id = ?`,
			paid, item.ID, authorID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteSale removes a sale and its author rows. Returns whether a row
// was deleted.
func (s *Store) DeleteSale(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaySaleAuthors marks every unpaid author row of a sale as paid.
// Returns the number of rows updated and the total amount marked paid.
func (s *Store) PaySaleAuthors(ctx context.Context, saleID string) (int, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	count := 0

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT royalty_amount FROM author_sales WHERE sale_id = ? AND author_paid = 0`, saleID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var amount string
			if err := rows.Scan(&amount); err != nil {
				rows.Close()
				return err
			}
			total = total.Add(parseDecimal(amount))
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE author_sales SET author_paid = 1 WHERE sale_id = ? AND author_paid = 0`, saleID)
		return err
	})
	if err != nil {
		return 0, decimal.Zero, err
	}
	return count, total, nil
}

// AuthorUnpaidSubtotal sums an author's unpaid royalty amounts.
func (s *Store) AuthorUnpaidSubtotal(ctx context.Context, authorID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT royalty_amount FROM author_sales WHERE author_id = ? AND author_paid = 0`, authorID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(parseDecimal(amount))
	}
	return total, rows.Err()
}

// PayAuthorUnpaidSales marks every unpaid royalty row of an author as
// paid. Returns the rows updated, total paid, and the affected sale ids.
func (s *Store) PayAuthorUnpaidSales(ctx context.Context, authorID string) (int, decimal.Decimal, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		total   = decimal.Zero
		count   int
		saleIDs []string
	)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT sale_id, royalty_amount FROM author_sales
			 WHERE author_id = ? AND author_paid = 0 ORDER BY rowid`, authorID)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		for rows.Next() {
			var saleID, amount string
			if err := rows.Scan(&saleID, &amount); err != nil {
				rows.Close()
				return err
			}
			total = total.Add(parseDecimal(amount))
			count++
			if !seen[saleID] {
				seen[saleID] = true
				saleIDs = append(saleIDs, saleID)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE author_sales SET author_paid = 1 WHERE author_id = ? AND author_paid = 0`, authorID)
		return err
	})
	if err != nil {
		return 0, decimal.Zero, nil, err
	}
	return count, total, saleIDs, nil
}

// =============================================================================
// TOTALS AND GROUPED PAYMENTS
// =============================================================================

// BookTotals summarizes a book's sales for the detail page cards.
type BookTotals struct {
	PublisherRevenue decimal.Decimal
	TotalRoyalties   decimal.Decimal
	PaidRoyalties    decimal.Decimal
	UnpaidRoyalties  decimal.Decimal
}

// BookSalesTotals sums revenue and royalty amounts for one book. Sums are
// computed in Go on decimals to avoid float drift.
func (s *Store) BookSalesTotals(ctx context.Context, bookID string) (BookTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := BookTotals{
		PublisherRevenue: decimal.Zero,
		TotalRoyalties:   decimal.Zero,
		PaidRoyalties:    decimal.Zero,
		UnpaidRoyalties:  decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT publisher_revenue FROM sales WHERE book_id = ?`, bookID)
	if err != nil {
		return t, err
	}
	for rows.Next() {
		var revenue string
		if err := rows.Scan(&revenue); err != nil {
			rows.Close()
			return t, err
		}
		t.PublisherRevenue = t.PublisherRevenue.Add(parseDecimal(revenue))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return t, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT asl.royalty_amount, asl.author_paid
		 FROM author_sales asl JOIN sales s ON s.id = asl.sale_id
		 WHERE s.book_id = ?`, bookID)
	if err != nil {
		return t, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			amount string
			paid   bool
		)
		if err := rows.Scan(&amount, &paid); err != nil {
			return t, err
		}
		amt := parseDecimal(amount)
		t.TotalRoyalties = t.TotalRoyalties.Add(amt)
		if paid {
			t.PaidRoyalties = t.PaidRoyalties.Add(amt)
		} else {
			t.UnpaidRoyalties = t.UnpaidRoyalties.Add(amt)
		}
	}
	return t, rows.Err()
}

// PaymentRow is one author-sale row in the grouped payments view.
type PaymentRow struct {
	Sale    SaleRecord // Authors left empty; the row below is the relevant one
	Author  sales.AuthorRoyalty
	Paid    bool
	DateKey int64 // unix seconds of the sale date, for client-side sorting
}

// AuthorPaymentGroup is one author's payment rows plus unpaid summary.
type AuthorPaymentGroup struct {
	Author      catalog.Author
	UnpaidTotal decimal.Decimal
	UnpaidCount int
	Rows        []PaymentRow
}

// AuthorPaymentsGrouped returns payment rows grouped by author, paginated
// by AUTHOR (not by row), ordered by author name.
func (s *Store) AuthorPaymentsGrouped(ctx context.Context, page, pageSize int, all bool) ([]AuthorPaymentGroup, ListMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM authors`).Scan(&total); err != nil {
		return nil, ListMeta{}, err
	}

	query := `SELECT id, name, bio FROM authors ORDER BY name, id`
	var args []any
	page, pageSize = clampPaging(page, pageSize, defaultPaymentsPageSize)
	if !all {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ListMeta{}, err
	}
	defer rows.Close()

	var groups []AuthorPaymentGroup
	index := make(map[string]int)
	var authorIDs []string
	for rows.Next() {
		var a catalog.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio); err != nil {
			return nil, ListMeta{}, err
		}
		index[a.ID] = len(groups)
		authorIDs = append(authorIDs, a.ID)
		groups = append(groups, AuthorPaymentGroup{
			Author:      a,
			UnpaidTotal: decimal.Zero,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, ListMeta{}, err
	}

	if len(authorIDs) == 0 {
		return []AuthorPaymentGroup{}, pageMeta(total, page, pageSize, all), nil
	}

	args = make([]any, len(authorIDs))
	for i, id := range authorIDs {
		args[i] = id
	}

	rowQuery := `SELECT asl.author_id, a.name, asl.royalty_amount, asl.author_paid,
			s.id, s.book_id, b.title, s.sale_date, s.quantity, s.publisher_revenue
		FROM author_sales asl
		JOIN authors a ON a.id = asl.author_id
		JOIN sales s ON s.id = asl.sale_id
		JOIN books b ON b.id = s.book_id
		WHERE asl.author_id IN (` + placeholders(len(authorIDs)) + `)
		ORDER BY a.name, s.sale_date DESC, s.rowid DESC`

	prows, err := s.db.QueryContext(ctx, rowQuery, args...)
	if err != nil {
		return nil, ListMeta{}, err
	}
	defer prows.Close()

	for prows.Next() {
		var (
			row      PaymentRow
			amount   string
			saleDate string
			revenue  string
		)
		if err := prows.Scan(&row.Author.AuthorID, &row.Author.Name, &amount, &row.Author.Paid,
			&row.Sale.ID, &row.Sale.BookID, &row.Sale.BookTitle, &saleDate,
			&row.Sale.Quantity, &revenue); err != nil {
			return nil, ListMeta{}, err
		}
		row.Author.Amount = parseDecimal(amount)
		row.Paid = row.Author.Paid
		row.Sale.Date = parseDate(saleDate)
		row.Sale.PublisherRevenue = parseDecimal(revenue)
		row.DateKey = row.Sale.Date.Unix()

		i := index[row.Author.AuthorID]
		if !row.Paid {
			groups[i].UnpaidTotal = groups[i].UnpaidTotal.Add(row.Author.Amount)
			groups[i].UnpaidCount++
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	if err := prows.Err(); err != nil {
		return nil, ListMeta{}, err
	}

	return groups, pageMeta(total, page, pageSize, all), nil
}
