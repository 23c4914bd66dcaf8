package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
	"github.com/inkwell/royalty-engine/sales"
	"github.com/inkwell/royalty-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAuthor(t *testing.T, store *sqlite.Store, name string) *catalog.Author {
	author, _, err := store.GetOrCreateAuthor(context.Background(), name, "")
	require.NoError(t, err)
	return author
}

func seedBook(t *testing.T, store *sqlite.Store, title, isbn13 string, shares []royalty.AuthorShare) *catalog.Book {
	book, err := store.CreateBook(context.Background(), catalog.Book{
		Title:           title,
		PublicationDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ISBN13:          isbn13,
		Authors:         shares,
	})
	require.NoError(t, err)
	return book
}

func share(a *catalog.Author, rate string) royalty.AuthorShare {
	return royalty.AuthorShare{AuthorID: a.ID, Name: a.Name, Rate: decimal.RequireFromString(rate)}
}

func seedSale(t *testing.T, store *sqlite.Store, book *catalog.Book, month sales.Month, qty int, revenue string, paid map[string]bool) *sqlite.SaleRecord {
	item := sales.LineItem{
		BookID:           book.ID,
		Date:             month,
		Quantity:         qty,
		PublisherRevenue: decimal.RequireFromString(revenue),
		AuthorPaid:       paid,
	}
	rec, err := store.CreateSale(context.Background(), item, sales.SnapshotRoyalties(book, item))
	require.NoError(t, err)
	return rec
}

func month(y int, m time.Month) sales.Month { return sales.Month{Year: y, Month: m} }

// =============================================================================
// AUTHOR TESTS
// =============================================================================

func TestGetOrCreateAuthor_CaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, created, err := store.GetOrCreateAuthor(ctx, "Ada Winters", "bio")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.GetOrCreateAuthor(ctx, "ada winters", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada Winters", second.Name)
}

func TestListAuthors_OrderedByName(t *testing.T) {
	store := newTestStore(t)
	seedAuthor(t, store, "Marcus Bell")
	seedAuthor(t, store, "Ada Winters")

	authors, err := store.ListAuthors(context.Background())
	require.NoError(t, err)

	require.Len(t, authors, 2)
	assert.Equal(t, "Ada Winters", authors[0].Name)
	assert.Equal(t, "Marcus Bell", authors[1].Name)
}

// =============================================================================
// BOOK TESTS
// =============================================================================

func TestCreateBook_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")

	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10"), share(marcus, "0.05")})

	got, err := store.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "The Glass Harbor", got.Title)
	require.Len(t, got.Authors, 2)
	// Insertion order is preserved: Ada is the first author.
	assert.Equal(t, ada.ID, got.Authors[0].AuthorID)
	assert.Equal(t, "0.1", got.Authors[0].Rate.String())
	assert.Equal(t, 0, got.TotalSalesToDate)
}

func TestCreateBook_DuplicateISBN13(t *testing.T) {
	store := newTestStore(t)
	ada := seedAuthor(t, store, "Ada Winters")
	shares := []royalty.AuthorShare{share(ada, "0.10")}

	seedBook(t, store, "First", "9781250301697", shares)

	_, err := store.CreateBook(context.Background(), catalog.Book{
		Title:           "Second",
		PublicationDate: time.Now().UTC(),
		ISBN13:          "9781250301697",
		Authors:         shares,
	})
	assert.ErrorIs(t, err, sqlite.ErrDuplicateISBN13)
}

func TestUpdateBook_ReplaceAuthors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")

	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})

	book.Title = "The Glass Harbor (2nd ed.)"
	book.Authors = []royalty.AuthorShare{share(marcus, "0.07")}

	updated, err := store.UpdateBook(ctx, *book, true)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "The Glass Harbor (2nd ed.)", updated.Title)
	require.Len(t, updated.Authors, 1)
	assert.Equal(t, marcus.ID, updated.Authors[0].AuthorID)
}

func TestUpdateBook_KeepAuthors(t *testing.T) {
	store := newTestStore(t)
	ada := seedAuthor(t, store, "Ada Winters")

	book := seedBook(t, store, "Old Title", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	book.Title = "New Title"
	book.Authors = nil

	updated, err := store.UpdateBook(context.Background(), *book, false)
	require.NoError(t, err)

	assert.Equal(t, "New Title", updated.Title)
	require.Len(t, updated.Authors, 1)
}

func TestDeleteBook_CascadesToSales(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	sale := seedSale(t, store, book, month(2024, time.April), 10, "200.00", nil)

	deleted, err := store.DeleteBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := store.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListBooks_SearchAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	shares := []royalty.AuthorShare{share(ada, "0.10")}

	seedBook(t, store, "The Glass Harbor", "9781250301697", shares)
	seedBook(t, store, "Letters from the Interior", "9780143127550", shares)
	seedBook(t, store, "Orchard Mathematics", "9780262046305", shares)

	// Title search.
	books, meta, err := store.ListBooks(ctx, sqlite.BookListOptions{Query: "glass"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Glass Harbor", books[0].Title)
	assert.Equal(t, 1, meta.Count)

	// ISBN search ignores hyphens.
	books, _, err = store.ListBooks(ctx, sqlite.BookListOptions{Query: "978-0143127550"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Letters from the Interior", books[0].Title)

	// Author name search.
	books, _, err = store.ListBooks(ctx, sqlite.BookListOptions{Query: "winters"})
	require.NoError(t, err)
	assert.Len(t, books, 3)

	// Pagination: page 2 of size 2 holds the last book (title order).
	books, meta, err = store.ListBooks(ctx, sqlite.BookListOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 3, meta.Count)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, "The Glass Harbor", books[0].Title)
}

func TestListDefaultPageSizes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697", []royalty.AuthorShare{share(ada, "0.10")})
	seedSale(t, store, book, month(2024, time.March), 5, "1000.00", nil)
	seedSale(t, store, book, month(2024, time.April), 2, "400.00", nil)
	seedSale(t, store, book, month(2024, time.May), 1, "150.00", nil)

	// Zero-value options fall back to one page of 50.
	books, meta, err := store.ListBooks(ctx, sqlite.BookListOptions{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, 50, meta.PageSize)

	records, meta, err := store.ListSales(ctx, sqlite.SaleListOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 50, meta.PageSize)
	assert.Equal(t, 1, meta.TotalPages)

	// The payments ledger pages by author with a smaller default.
	groups, meta, err := store.AuthorPaymentsGrouped(ctx, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, 10, meta.PageSize)
}

func TestListBooks_OrderByTotalSales(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	shares := []royalty.AuthorShare{share(ada, "0.10")}

	slow := seedBook(t, store, "Slow Seller", "9781250301697", shares)
	fast := seedBook(t, store, "Fast Seller", "9780143127550", shares)
	seedSale(t, store, slow, month(2024, time.April), 5, "100.00", nil)
	seedSale(t, store, fast, month(2024, time.April), 50, "1000.00", nil)

	books, _, err := store.ListBooks(ctx, sqlite.BookListOptions{OrderBy: "-total_sales_to_date"})
	require.NoError(t, err)

	require.Len(t, books, 2)
	assert.Equal(t, "Fast Seller", books[0].Title)
	assert.Equal(t, 50, books[0].TotalSalesToDate)
}

// =============================================================================
// SALE TESTS
// =============================================================================

func TestCreateSale_SnapshotRows(t *testing.T) {
	store := newTestStore(t)
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10"), share(marcus, "0.05")})

	rec := seedSale(t, store, book, month(2024, time.April), 50, "1000.00", nil)

	assert.Equal(t, "The Glass Harbor", rec.BookTitle)
	assert.Equal(t, "2024-04-01", rec.Date.Format("2006-01-02"))
	require.Len(t, rec.Authors, 2)
	assert.Equal(t, "100.00", rec.Authors[0].Amount.StringFixed(2))
	assert.Equal(t, "50.00", rec.Authors[1].Amount.StringFixed(2))
}

func TestCreateSaleBatch_Atomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})

	good := sales.LineItem{
		BookID:           book.ID,
		Date:             month(2024, time.April),
		Quantity:         10,
		PublisherRevenue: decimal.RequireFromString("200.00"),
	}
	bad := good
	bad.BookID = "no-such-book" // FK violation

	_, err := store.CreateSaleBatch(ctx,
		[]sales.LineItem{good, bad},
		[][]sales.AuthorRoyalty{
			sales.SnapshotRoyalties(book, good),
			sales.SnapshotRoyalties(book, bad),
		})
	require.Error(t, err)

	// Nothing from the batch was written.
	_, meta, err := store.ListSales(ctx, sqlite.SaleListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, meta.Count)
}

func TestListSales_FiltersAndDefaultOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	other := seedBook(t, store, "Letters from the Interior", "9780143127550",
		[]royalty.AuthorShare{share(ada, "0.12")})

	seedSale(t, store, book, month(2024, time.January), 10, "200.00", nil)
	seedSale(t, store, book, month(2024, time.March), 30, "600.00", nil)
	seedSale(t, store, other, month(2024, time.February), 20, "400.00", nil)

	// Default order: newest first.
	records, meta, err := store.ListSales(ctx, sqlite.SaleListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Count)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-03-01", records[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-01-01", records[2].Date.Format("2006-01-02"))

	// Book filter.
	records, _, err = store.ListSales(ctx, sqlite.SaleListOptions{BookID: other.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Letters from the Interior", records[0].BookTitle)

	// Month range covers whole months.
	start := month(2024, time.February)
	end := month(2024, time.March)
	records, _, err = store.ListSales(ctx, sqlite.SaleListOptions{Start: &start, End: &end})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestListSales_OrderByPaidStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10"), share(marcus, "0.05")})

	unpaid := seedSale(t, store, book, month(2024, time.January), 10, "200.00", nil)
	partial := seedSale(t, store, book, month(2024, time.February), 10, "200.00",
		map[string]bool{ada.ID: true})
	paid := seedSale(t, store, book, month(2024, time.March), 10, "200.00",
		map[string]bool{ada.ID: true, marcus.ID: true})

	records, _, err := store.ListSales(ctx, sqlite.SaleListOptions{OrderBy: "paid_status"})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, paid.ID, records[0].ID)    // 0 = fully paid
	assert.Equal(t, partial.ID, records[1].ID) // 1 = partial
	assert.Equal(t, unpaid.ID, records[2].ID)  // 2 = unpaid
}

func TestUpdateSale_PreservesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	rec := seedSale(t, store, book, month(2024, time.April), 50, "1000.00", nil)

	// Changing quantity and revenue does not touch the royalty rows.
	updated, err := store.UpdateSale(ctx, sales.LineItem{
		ID:               rec.ID,
		BookID:           book.ID,
		Date:             month(2024, time.April),
		Quantity:         75,
		PublisherRevenue: decimal.RequireFromString("2000.00"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, 75, updated.Quantity)
	require.Len(t, updated.Authors, 1)
	assert.Equal(t, "100.00", updated.Authors[0].Amount.StringFixed(2))
}

func TestUpdateSale_ExplicitOverrideApplied(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	rec := seedSale(t, store, book, month(2024, time.April), 50, "1000.00", nil)

	updated, err := store.UpdateSale(ctx, sales.LineItem{
		ID:               rec.ID,
		BookID:           book.ID,
		Date:             month(2024, time.April),
		Quantity:         50,
		PublisherRevenue: decimal.RequireFromString("1000.00"),
		AuthorRoyalties:  royalty.AmountMap{ada.ID: "42.00"},
		AuthorPaid:       map[string]bool{ada.ID: true},
	})
	require.NoError(t, err)

	require.Len(t, updated.Authors, 1)
	assert.Equal(t, "42.00", updated.Authors[0].Amount.StringFixed(2))
	assert.True(t, updated.Authors[0].Paid)
}

func TestUpdateSale_BookChangeRebuildsRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	priya := seedAuthor(t, store, "Priya Raman")
	first := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	second := seedBook(t, store, "Orchard Mathematics", "9780262046305",
		[]royalty.AuthorShare{share(priya, "0.08")})

	rec := seedSale(t, store, first, month(2024, time.April), 50, "1000.00", nil)

	updated, err := store.UpdateSale(ctx, sales.LineItem{
		ID:               rec.ID,
		BookID:           second.ID,
		Date:             month(2024, time.April),
		Quantity:         50,
		PublisherRevenue: decimal.RequireFromString("1000.00"),
	})
	require.NoError(t, err)

	require.Len(t, updated.Authors, 1)
	assert.Equal(t, priya.ID, updated.Authors[0].AuthorID)
	assert.Equal(t, "80.00", updated.Authors[0].Amount.StringFixed(2))
}

func TestDeleteSale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})
	rec := seedSale(t, store, book, month(2024, time.April), 10, "200.00", nil)

	deleted, err := store.DeleteSale(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteSale(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestPaySaleAuthors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10"), share(marcus, "0.05")})
	rec := seedSale(t, store, book, month(2024, time.April), 50, "1000.00",
		map[string]bool{ada.ID: true})

	count, total, err := store.PaySaleAuthors(ctx, rec.ID)
	require.NoError(t, err)

	// Only Marcus's 50.00 was still unpaid.
	assert.Equal(t, 1, count)
	assert.Equal(t, "50.00", total.StringFixed(2))

	got, err := store.GetSale(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.PaidStatusFull, sales.PaidStatusOf(got.Authors))
}

func TestAuthorUnpaidSubtotalAndPay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})

	s1 := seedSale(t, store, book, month(2024, time.January), 10, "200.00", nil)  // 20.00
	s2 := seedSale(t, store, book, month(2024, time.February), 10, "300.00", nil) // 30.00
	seedSale(t, store, book, month(2024, time.March), 10, "400.00", map[string]bool{ada.ID: true})

	subtotal, err := store.AuthorUnpaidSubtotal(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", subtotal.StringFixed(2))

	count, total, saleIDs, err := store.PayAuthorUnpaidSales(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "50.00", total.StringFixed(2))
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, saleIDs)

	subtotal, err = store.AuthorUnpaidSubtotal(ctx, ada.ID)
	require.NoError(t, err)
	assert.True(t, subtotal.IsZero())
}

func TestBookSalesTotals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10")})

	seedSale(t, store, book, month(2024, time.January), 10, "200.00", map[string]bool{ada.ID: true})
	seedSale(t, store, book, month(2024, time.February), 10, "300.00", nil)

	totals, err := store.BookSalesTotals(ctx, book.ID)
	require.NoError(t, err)

	assert.Equal(t, "500.00", totals.PublisherRevenue.StringFixed(2))
	assert.Equal(t, "50.00", totals.TotalRoyalties.StringFixed(2))
	assert.Equal(t, "20.00", totals.PaidRoyalties.StringFixed(2))
	assert.Equal(t, "30.00", totals.UnpaidRoyalties.StringFixed(2))
}

func TestAuthorPaymentsGrouped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ada := seedAuthor(t, store, "Ada Winters")
	marcus := seedAuthor(t, store, "Marcus Bell")
	book := seedBook(t, store, "The Glass Harbor", "9781250301697",
		[]royalty.AuthorShare{share(ada, "0.10"), share(marcus, "0.05")})

	seedSale(t, store, book, month(2024, time.January), 10, "200.00", nil)
	seedSale(t, store, book, month(2024, time.February), 10, "300.00", map[string]bool{ada.ID: true})

	groups, meta, err := store.AuthorPaymentsGrouped(ctx, 1, 50, false)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Count)
	require.Len(t, groups, 2)

	// Ordered by author name: Ada first.
	assert.Equal(t, "Ada Winters", groups[0].Author.Name)
	require.Len(t, groups[0].Rows, 2)
	// Rows ordered by sale date, newest first.
	assert.Equal(t, "2024-02-01", groups[0].Rows[0].Sale.Date.Format("2006-01-02"))
	assert.True(t, groups[0].Rows[0].Paid)
	assert.Equal(t, "20.00", groups[0].UnpaidTotal.StringFixed(2))
	assert.Equal(t, 1, groups[0].UnpaidCount)

	assert.Equal(t, "Marcus Bell", groups[1].Author.Name)
	assert.Equal(t, "25.00", groups[1].UnpaidTotal.StringFixed(2))
	assert.Equal(t, 2, groups[1].UnpaidCount)
}
