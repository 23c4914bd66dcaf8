/*
handlers.go - HTTP API handlers for the royalty accounting system

PURPOSE:
  Exposes the publisher accounting engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Books:
    GET    /api/books                    List/search books (paginated)
    POST   /api/books                    Create book with author shares
    GET    /api/books/{id}               Book detail
    PATCH  /api/books/{id}               Partial update
    DELETE /api/books/{id}               Delete (cascades to sales)
    GET    /api/books/{id}/sales/totals  Revenue and royalty totals

  Authors:
    GET    /api/authors                  List authors
    POST   /api/authors                  Create-if-not-exists by name
    GET    /api/authors/{id}/unpaid/subtotal
    POST   /api/authors/{id}/pay_unpaid_sales
    GET    /api/authors/payments         Payment rows grouped by author

  Sales:
    GET    /api/sales                    List/filter sales (paginated)
    POST   /api/sales                    Record a sale
    POST   /api/sales/bulk               Record many sales atomically
    GET    /api/sales/{id}               Sale detail
    POST   /api/sales/{id}               Edit (optional ?fields= whitelist)
    DELETE /api/sales/{id}               Delete
    POST   /api/sales/{id}/pay_authors   Mark all author rows paid

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario
    POST   /api/scenarios/reset          Wipe the database

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Track of the currently loaded demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (catalog/sales validators, exact field messages)
  3. Call domain logic (royalty engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Validation failures return 400 with a {field: message} object. Bulk
  create failures return 400 with [{index, errors}]. Missing resources
  return 404. Everything else is a 500 with {error, details}.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
	"github.com/inkwell/royalty-engine/sales"
	"github.com/inkwell/royalty-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// BOOK HANDLERS
// =============================================================================

// ListBooks returns a page of books matching the query parameters.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := sqlite.BookListOptions{
		Query:           q.Get("q"),
		PublishedBefore: q.Get("published_before"),
		OrderBy:         q.Get("ordering"),
	}
	opts.Page, opts.PageSize, opts.All = pagingParams(q.Get("page"), q.Get("page_size"), q.Get("all"))

	books, meta, err := h.Store.ListBooks(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list books", err)
		return
	}

	fields := fieldSet(q.Get("fields"))
	results := make([]any, len(books))
	for i, b := range books {
		results[i] = filterFields(toBookDTO(&b), fields)
	}

	writeJSON(w, http.StatusOK, pageDTO(meta, results))
}

// GetBook returns a single book.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Store.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get book", err)
		return
	}
	if book == nil {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBookDTO(book))
}

// CreateBook creates a book with its author royalty shares.
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries, names, ferr := h.resolveAuthors(r, req.Authors)
	if ferr != nil {
		writeJSON(w, http.StatusBadRequest, ferr)
		return
	}

	draft := catalog.BookDraft{
		Title:           req.Title,
		PublicationDate: req.PublicationDate,
		ISBN13:          req.ISBN13,
		ISBN10:          req.ISBN10,
		Authors:         entries,
	}
	book, errs := draft.Validate(nameResolver(names))
	if errs.Any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	created, err := h.Store.CreateBook(r.Context(), book)
	if err == sqlite.ErrDuplicateISBN13 {
		writeJSON(w, http.StatusBadRequest, catalog.FieldErrors{
			"isbn_13": "A book with this ISBN-13 already exists.",
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create book", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookDTO(created))
}

// UpdateBook applies a partial update. Providing an authors array
// replaces the book's author set.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, err := h.Store.GetBook(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get book", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}

	var req UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	draft := catalog.BookDraft{
		Title:           existing.Title,
		PublicationDate: existing.PublicationDate.Format("2006-01-02"),
		ISBN13:          existing.ISBN13,
		ISBN10:          existing.ISBN10,
	}
	names := make(map[string]string)
	for _, share := range existing.Authors {
		draft.Authors = append(draft.Authors, catalog.RateEntry{
			AuthorID: share.AuthorID,
			Rate:     share.Rate.String(),
		})
		names[share.AuthorID] = share.Name
	}

	if req.Title != nil {
		draft.Title = *req.Title
	}
	if req.PublicationDate != nil {
		draft.PublicationDate = *req.PublicationDate
	}
	if req.ISBN13 != nil {
		draft.ISBN13 = *req.ISBN13
	}
	if req.ISBN10 != nil {
		draft.ISBN10 = *req.ISBN10
	}
	replaceAuthors := req.Authors != nil
	if replaceAuthors {
		entries, resolved, ferr := h.resolveAuthors(r, *req.Authors)
		if ferr != nil {
			writeJSON(w, http.StatusBadRequest, ferr)
			return
		}
		draft.Authors = entries
		names = resolved
	}

	book, errs := draft.Validate(nameResolver(names))
	if errs.Any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	book.ID = existing.ID

	updated, err := h.Store.UpdateBook(ctx, book, replaceAuthors)
	if err == sqlite.ErrDuplicateISBN13 {
		writeJSON(w, http.StatusBadRequest, catalog.FieldErrors{
			"isbn_13": "A book with this ISBN-13 already exists.",
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update book", err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toBookDTO(updated))
}

// DeleteBook removes a book and all of its sales.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Store.DeleteBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete book", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBookSalesTotals returns revenue and royalty totals for one book.
func (h *Handler) GetBookSalesTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	book, err := h.Store.GetBook(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get book", err)
		return
	}
	if book == nil {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}

	totals, err := h.Store.BookSalesTotals(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute totals", err)
		return
	}

	writeJSON(w, http.StatusOK, BookTotalsDTO{
		BookID:           id,
		PublisherRevenue: totals.PublisherRevenue.StringFixed(2),
		TotalRoyalties:   totals.TotalRoyalties.StringFixed(2),
		PaidRoyalties:    totals.PaidRoyalties.StringFixed(2),
		UnpaidRoyalties:  totals.UnpaidRoyalties.StringFixed(2),
	})
}

// resolveAuthors turns the request's author entries into rate entries
// against real author rows, creating authors by name when needed.
func (h *Handler) resolveAuthors(r *http.Request, reqs []AuthorRateRequest) ([]catalog.RateEntry, map[string]string, catalog.FieldErrors) {
	ctx := r.Context()
	entries := make([]catalog.RateEntry, 0, len(reqs))
	names := make(map[string]string, len(reqs))

	for _, a := range reqs {
		switch {
		case a.ID != "":
			author, err := h.Store.GetAuthor(ctx, a.ID)
			if err != nil {
				return nil, nil, catalog.FieldErrors{"authors": "Failed to look up author."}
			}
			if author == nil {
				return nil, nil, catalog.FieldErrors{"authors": "Author not found."}
			}
			entries = append(entries, catalog.RateEntry{AuthorID: author.ID, Rate: string(a.RoyaltyRate)})
			names[author.ID] = author.Name
		case strings.TrimSpace(a.Name) != "":
			author, _, err := h.Store.GetOrCreateAuthor(ctx, strings.TrimSpace(a.Name), "")
			if err != nil {
				return nil, nil, catalog.FieldErrors{"authors": "Failed to create author."}
			}
			entries = append(entries, catalog.RateEntry{AuthorID: author.ID, Rate: string(a.RoyaltyRate)})
			names[author.ID] = author.Name
		default:
			return nil, nil, catalog.FieldErrors{"authors": "Each author needs an id or a name."}
		}
	}
	return entries, names, nil
}

func nameResolver(names map[string]string) catalog.NameResolver {
	return func(authorID string) string {
		return names[authorID]
	}
}

// =============================================================================
// AUTHOR HANDLERS
// =============================================================================

// ListAuthors returns all authors ordered by name.
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.Store.ListAuthors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list authors", err)
		return
	}

	dtos := make([]AuthorDTO, len(authors))
	for i, a := range authors {
		dtos[i] = AuthorDTO{ID: a.ID, Name: a.Name, Bio: a.Bio}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAuthor creates an author unless one with the same name already
// exists (case-insensitive); then the existing author is returned.
func (h *Handler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req CreateAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, catalog.FieldErrors{"name": "Name is required."})
		return
	}

	author, created, err := h.Store.GetOrCreateAuthor(r.Context(), strings.TrimSpace(req.Name), req.Bio)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create author", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, AuthorDTO{ID: author.ID, Name: author.Name, Bio: author.Bio})
}

// GetAuthorUnpaidSubtotal sums an author's outstanding royalties.
func (h *Handler) GetAuthorUnpaidSubtotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	author, err := h.Store.GetAuthor(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get author", err)
		return
	}
	if author == nil {
		writeError(w, http.StatusNotFound, "Author not found", nil)
		return
	}

	subtotal, err := h.Store.AuthorUnpaidSubtotal(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute subtotal", err)
		return
	}

	writeJSON(w, http.StatusOK, UnpaidSubtotalResponse{
		AuthorID: id,
		Subtotal: subtotal.StringFixed(2),
	})
}

// PayAuthorUnpaidSales marks every unpaid royalty row of an author paid.
func (h *Handler) PayAuthorUnpaidSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	author, err := h.Store.GetAuthor(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get author", err)
		return
	}
	if author == nil {
		writeError(w, http.StatusNotFound, "Author not found", nil)
		return
	}

	count, total, saleIDs, err := h.Store.PayAuthorUnpaidSales(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to pay author", err)
		return
	}
	if saleIDs == nil {
		saleIDs = []string{}
	}

	writeJSON(w, http.StatusOK, PayUnpaidResponse{
		AuthorID:  id,
		RowsPaid:  count,
		TotalPaid: total.StringFixed(2),
		SaleIDs:   saleIDs,
	})
}

// GetAuthorPayments returns payment rows grouped by author, paginated by
// author.
func (h *Handler) GetAuthorPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize, all := pagingParams(q.Get("page"), q.Get("page_size"), q.Get("all"))

	groups, meta, err := h.Store.AuthorPaymentsGrouped(r.Context(), page, pageSize, all)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]AuthorPaymentsDTO, len(groups))
	for i, g := range groups {
		rows := make([]PaymentRowDTO, len(g.Rows))
		for j, row := range g.Rows {
			rows[j] = PaymentRowDTO{
				SaleID:        row.Sale.ID,
				BookID:        row.Sale.BookID,
				BookTitle:     row.Sale.BookTitle,
				Date:          row.Sale.Date.Format("2006-01-02"),
				DateKey:       row.DateKey,
				Quantity:      row.Sale.Quantity,
				RoyaltyAmount: row.Author.Amount.StringFixed(2),
				Paid:          row.Paid,
			}
		}
		dtos[i] = AuthorPaymentsDTO{
			Author:      AuthorDTO{ID: g.Author.ID, Name: g.Author.Name, Bio: g.Author.Bio},
			UnpaidTotal: g.UnpaidTotal.StringFixed(2),
			UnpaidCount: g.UnpaidCount,
			Rows:        rows,
		}
	}

	writeJSON(w, http.StatusOK, pageDTO(meta, dtos))
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns a page of sales matching the query parameters.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := sqlite.SaleListOptions{
		BookID:  q.Get("book_id"),
		OrderBy: q.Get("ordering"),
	}
	opts.Page, opts.PageSize, opts.All = pagingParams(q.Get("page"), q.Get("page_size"), q.Get("all"))

	if v := q.Get("start_date"); v != "" {
		m, err := sales.ParseMonth(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, catalog.FieldErrors{
				"start_date": "Please provide sale date in month, year format.",
			})
			return
		}
		opts.Start = &m
	}
	if v := q.Get("end_date"); v != "" {
		m, err := sales.ParseMonth(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, catalog.FieldErrors{
				"end_date": "Please provide sale date in month, year format.",
			})
			return
		}
		opts.End = &m
	}

	records, meta, err := h.Store.ListSales(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}

	dtos := make([]SaleDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSaleDTO(rec)
	}
	writeJSON(w, http.StatusOK, pageDTO(meta, dtos))
}

// GetSale returns a single sale with its author royalty rows.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get sale", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(rec))
}

// CreateSale records one sale and snapshots its author royalties.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SaleWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, rows, errs, err := h.buildSale(r, req, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to validate sale", err)
		return
	}
	if errs.Any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	rec, err := h.Store.CreateSale(ctx, item, rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(rec))
}

// CreateSalesBulk records many sales in a single transaction. Any
// validation failure rejects the entire batch with per-index errors.
// Rows where nothing was entered at all are skipped.
func (h *Handler) CreateSalesBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqs []SaleWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		items       []sales.LineItem
		rowsPerItem [][]sales.AuthorRoyalty
		bulkErrs    []BulkSaleErrorDTO
	)
	for i, req := range reqs {
		draft := draftFromRequest(req)
		if !draft.Started() {
			continue
		}

		item, rows, errs, err := h.buildSale(r, req, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to validate sale", err)
			return
		}
		if errs.Any() {
			bulkErrs = append(bulkErrs, BulkSaleErrorDTO{Index: i, Errors: errs})
			continue
		}
		items = append(items, item)
		rowsPerItem = append(rowsPerItem, rows)
	}

	if len(bulkErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, bulkErrs)
		return
	}

	records, err := h.Store.CreateSaleBatch(ctx, items, rowsPerItem)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sales", err)
		return
	}

	dtos := make([]SaleDTO, len(records))
	for i, rec := range records {
		dtos[i] = toSaleDTO(rec)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// UpdateSale edits an existing sale. The royalty snapshot is preserved
// unless the book changes, in which case it is rebuilt from the new
// book's authors. An optional ?fields= parameter whitelists which request
// fields are applied.
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetSale(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get sale", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}

	var req SaleWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req = restrictFields(req, fieldSet(r.URL.Query().Get("fields")))

	item, _, errs, err := h.buildSale(r, req, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to validate sale", err)
		return
	}
	if errs.Any() {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	item.ID = id

	updated, err := h.Store.UpdateSale(ctx, item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update sale", err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(updated))
}

// DeleteSale removes a sale and its royalty rows.
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Store.DeleteSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete sale", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaySaleAuthors marks every author row of a sale as paid.
func (h *Handler) PaySaleAuthors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rec, err := h.Store.GetSale(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get sale", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Sale not found", nil)
		return
	}

	count, total, err := h.Store.PaySaleAuthors(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to pay authors", err)
		return
	}

	writeJSON(w, http.StatusOK, PayAuthorsResponse{
		SaleID:     id,
		RowsPaid:   count,
		TotalPaid:  total.StringFixed(2),
		PaidStatus: sales.PaidStatusFull.String(),
	})
}

// buildSale validates a write request into a line item plus its royalty
// snapshot rows. For edits, existing backfills the fields the request
// omitted; the snapshot rows are only used on create.
func (h *Handler) buildSale(r *http.Request, req SaleWriteRequest, existing *sqlite.SaleRecord) (sales.LineItem, []sales.AuthorRoyalty, catalog.FieldErrors, error) {
	ctx := r.Context()
	draft := draftFromRequest(req)

	if existing != nil {
		draft.FillFrom(lineItemFromRecord(existing))
	}

	var book *catalog.Book
	if draft.BookID != "" {
		var err error
		book, err = h.Store.GetBook(ctx, draft.BookID)
		if err != nil {
			return sales.LineItem{}, nil, nil, err
		}
	}

	item, errs := draft.Validate(book)
	if errs.Any() {
		return sales.LineItem{}, nil, errs, nil
	}

	// Editing reconciles through a hydrated session: every persisted amount
	// starts overridden, so untouched rows survive revenue changes, while a
	// book change resets the session and recomputes for the new author set.
	if existing != nil {
		sess := royalty.HydrateSession(book.Authors, persistedAmounts(existing))
		if existing.BookID != book.ID {
			sess.BookChanged(book.Authors)
			sess.SetRevenue(item.PublisherRevenue.String())
		}
		for id, v := range item.AuthorRoyalties {
			sess.SetAmount(id, v)
		}
		item.AuthorRoyalties = sess.Amounts()
	}

	return item, sales.SnapshotRoyalties(book, item), nil, nil
}

func persistedAmounts(rec *sqlite.SaleRecord) royalty.AmountMap {
	out := make(royalty.AmountMap, len(rec.Authors))
	for _, row := range rec.Authors {
		out[row.AuthorID] = row.Amount.StringFixed(2)
	}
	return out
}

func draftFromRequest(req SaleWriteRequest) sales.Draft {
	draft := sales.Draft{
		BookID:     req.Book,
		Date:       req.Date,
		Quantity:   req.Quantity,
		AuthorPaid: req.AuthorPaid,
	}
	if req.PublisherRevenue != nil {
		v := string(*req.PublisherRevenue)
		draft.PublisherRevenue = &v
	}
	if len(req.AuthorRoyalties) > 0 {
		draft.AuthorRoyalties = make(map[string]string, len(req.AuthorRoyalties))
		for id, v := range req.AuthorRoyalties {
			draft.AuthorRoyalties[id] = string(v)
		}
	}
	return draft
}

func lineItemFromRecord(rec *sqlite.SaleRecord) sales.LineItem {
	return sales.LineItem{
		ID:               rec.ID,
		BookID:           rec.BookID,
		Date:             sales.MonthOf(rec.Date),
		Quantity:         rec.Quantity,
		PublisherRevenue: rec.PublisherRevenue,
	}
}

// restrictFields drops request fields not named in the whitelist. A nil
// whitelist means no restriction.
func restrictFields(req SaleWriteRequest, fields map[string]bool) SaleWriteRequest {
	if fields == nil {
		return req
	}
	if !fields["book"] {
		req.Book = ""
	}
	if !fields["date"] {
		req.Date = ""
	}
	if !fields["quantity"] {
		req.Quantity = nil
	}
	if !fields["publisher_revenue"] {
		req.PublisherRevenue = nil
	}
	if !fields["author_royalties"] {
		req.AuthorRoyalties = nil
	}
	if !fields["author_paid"] {
		req.AuthorPaid = nil
	}
	return req
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toBookDTO(b *catalog.Book) BookDTO {
	authors := make([]AuthorShareDTO, len(b.Authors))
	for i, share := range b.Authors {
		authors[i] = AuthorShareDTO{
			ID:          share.AuthorID,
			Name:        share.Name,
			RoyaltyRate: share.Rate.StringFixed(4),
		}
	}
	return BookDTO{
		ID:               b.ID,
		Title:            b.Title,
		PublicationDate:  b.PublicationDate.Format("2006-01-02"),
		ISBN13:           b.ISBN13,
		ISBN10:           b.ISBN10,
		Authors:          authors,
		TotalSalesToDate: b.TotalSalesToDate,
	}
}

func toSaleDTO(rec *sqlite.SaleRecord) SaleDTO {
	details := make([]SaleAuthorDTO, len(rec.Authors))
	for i, row := range rec.Authors {
		details[i] = SaleAuthorDTO{
			ID:            row.AuthorID,
			Name:          row.Name,
			RoyaltyAmount: row.Amount.StringFixed(2),
			Paid:          row.Paid,
		}
	}
	return SaleDTO{
		ID:               rec.ID,
		Book:             rec.BookID,
		BookTitle:        rec.BookTitle,
		Date:             rec.Date.Format("2006-01-02"),
		Quantity:         rec.Quantity,
		PublisherRevenue: rec.PublisherRevenue.StringFixed(2),
		AuthorDetails:    details,
		PaidStatus:       sales.PaidStatusOf(rec.Authors).String(),
	}
}

// =============================================================================
// QUERY PARAM HELPERS
// =============================================================================

func pagingParams(page, pageSize, all string) (int, int, bool) {
	p, _ := strconv.Atoi(page)
	ps, _ := strconv.Atoi(pageSize)
	return p, ps, all == "true" || all == "1"
}

// fieldSet parses a comma-separated fields parameter. Returns nil when the
// parameter is absent (meaning: no filtering).
func fieldSet(v string) map[string]bool {
	if v == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = true
		}
	}
	return set
}

// filterFields projects a book DTO onto the requested field names.
func filterFields(dto BookDTO, fields map[string]bool) any {
	if fields == nil {
		return dto
	}

	full := map[string]any{
		"id":                  dto.ID,
		"title":               dto.Title,
		"publication_date":    dto.PublicationDate,
		"isbn_13":             dto.ISBN13,
		"isbn_10":             dto.ISBN10,
		"authors":             dto.Authors,
		"total_sales_to_date": dto.TotalSalesToDate,
	}
	out := make(map[string]any, len(fields))
	for name := range fields {
		if v, ok := full[name]; ok {
			out[name] = v
		}
	}
	return out
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
