/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates authors, books and
	sales that demonstrate specific features of the royalty engine.

AVAILABLE SCENARIOS:

	starter-catalog:   Small catalog, a few sales, all royalties automatic
	busy-quarter:      Many sales across three months, mixed payment state
	royalty-overrides: Sales with manually overridden royalty amounts

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create authors and books with royalty shares
 3. Record sales, computing royalty rows through the royalty engine
 4. Optionally override amounts and mark rows paid

USAGE VIA API:

	POST /api/scenarios/load
	{"name": "busy-quarter"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with name, title, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - royalty/session.go: Session used to compute seeded royalty rows
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
	"github.com/inkwell/royalty-engine/sales"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		Name:        "starter-catalog",
		Title:       "Starter Catalog",
		Description: "Two books, three authors, a handful of sales with automatic royalties",
	},
	{
		Name:        "busy-quarter",
		Title:       "Busy Quarter",
		Description: "A quarter of monthly sales across the catalog with paid, partial and unpaid sales",
	},
	{
		Name:        "royalty-overrides",
		Title:       "Royalty Overrides",
		Description: "Sales where some author royalties were manually adjusted away from rate x revenue",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and seeds a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.Name {
	case "starter-catalog":
		err = h.loadStarterCatalogScenario(ctx)
	case "busy-quarter":
		err = h.loadBusyQuarterScenario(ctx)
	case "royalty-overrides":
		err = h.loadRoyaltyOverridesScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.Name
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.Name,
	})
}

// ResetDatabase wipes all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) seedAuthor(ctx context.Context, name, bio string) (*catalog.Author, error) {
	author, _, err := h.Store.GetOrCreateAuthor(ctx, name, bio)
	return author, err
}

func (h *Handler) seedBook(ctx context.Context, title, pubDate, isbn13 string, shares []royalty.AuthorShare) (*catalog.Book, error) {
	draft := catalog.BookDraft{
		Title:           title,
		PublicationDate: pubDate,
		ISBN13:          isbn13,
	}
	names := make(map[string]string, len(shares))
	for _, s := range shares {
		draft.Authors = append(draft.Authors, catalog.RateEntry{
			AuthorID: s.AuthorID,
			Rate:     s.Rate.String(),
		})
		names[s.AuthorID] = s.Name
	}

	book, errs := draft.Validate(nameResolver(names))
	if errs.Any() {
		return nil, fmt.Errorf("seed book %q: %w", title, errs)
	}
	return h.Store.CreateBook(ctx, book)
}

// seedSale records a sale, running the royalty engine the way the sale
// entry form does: automatic amounts from rate x revenue, with optional
// per-author overrides applied on top.
func (h *Handler) seedSale(ctx context.Context, book *catalog.Book, month string, qty int, revenue string, overrides map[string]string, paid map[string]bool) error {
	session := royalty.NewSession(book.Authors)
	session.SetRevenue(revenue)
	for authorID, amount := range overrides {
		session.SetAmount(authorID, amount)
	}

	m, err := sales.ParseMonth(month)
	if err != nil {
		return fmt.Errorf("seed sale for %q: %w", book.Title, err)
	}

	item := sales.LineItem{
		BookID:           book.ID,
		Date:             m,
		Quantity:         qty,
		PublisherRevenue: decimal.RequireFromString(revenue),
		AuthorRoyalties:  session.Amounts(),
		AuthorPaid:       paid,
	}

	_, err = h.Store.CreateSale(ctx, item, sales.SnapshotRoyalties(book, item))
	if err != nil {
		return fmt.Errorf("seed sale for %q: %w", book.Title, err)
	}
	return nil
}

func rate(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// =============================================================================
// SCENARIO: STARTER CATALOG
// =============================================================================

func (h *Handler) loadStarterCatalogScenario(ctx context.Context) error {
	ada, err := h.seedAuthor(ctx, "Ada Winters", "Debut novelist.")
	if err != nil {
		return err
	}
	marcus, err := h.seedAuthor(ctx, "Marcus Bell", "Long-time collaborator.")
	if err != nil {
		return err
	}
	ines, err := h.seedAuthor(ctx, "Ines Okafor", "Short fiction and essays.")
	if err != nil {
		return err
	}

	harbor, err := h.seedBook(ctx, "The Glass Harbor", "2024-03-01", "9781250301697",
		[]royalty.AuthorShare{
			{AuthorID: ada.ID, Name: ada.Name, Rate: rate("0.10")},
			{AuthorID: marcus.ID, Name: marcus.Name, Rate: rate("0.05")},
		})
	if err != nil {
		return err
	}
	letters, err := h.seedBook(ctx, "Letters from the Interior", "2023-09-01", "9780143127550",
		[]royalty.AuthorShare{
			{AuthorID: ines.ID, Name: ines.Name, Rate: rate("0.12")},
		})
	if err != nil {
		return err
	}

	if err := h.seedSale(ctx, harbor, "2024-04", 120, "2400.00", nil, nil); err != nil {
		return err
	}
	if err := h.seedSale(ctx, harbor, "2024-05", 95, "1900.00", nil, nil); err != nil {
		return err
	}
	return h.seedSale(ctx, letters, "2024-05", 60, "900.00", nil, nil)
}

// =============================================================================
// SCENARIO: BUSY QUARTER
// =============================================================================

func (h *Handler) loadBusyQuarterScenario(ctx context.Context) error {
	ada, err := h.seedAuthor(ctx, "Ada Winters", "")
	if err != nil {
		return err
	}
	marcus, err := h.seedAuthor(ctx, "Marcus Bell", "")
	if err != nil {
		return err
	}
	priya, err := h.seedAuthor(ctx, "Priya Raman", "")
	if err != nil {
		return err
	}

	harbor, err := h.seedBook(ctx, "The Glass Harbor", "2024-01-01", "9781250301697",
		[]royalty.AuthorShare{
			{AuthorID: ada.ID, Name: ada.Name, Rate: rate("0.10")},
			{AuthorID: marcus.ID, Name: marcus.Name, Rate: rate("0.05")},
		})
	if err != nil {
		return err
	}
	orchard, err := h.seedBook(ctx, "Orchard Mathematics", "2023-06-01", "9780262046305",
		[]royalty.AuthorShare{
			{AuthorID: priya.ID, Name: priya.Name, Rate: rate("0.08")},
		})
	if err != nil {
		return err
	}

	// Fully paid month.
	if err := h.seedSale(ctx, harbor, "2024-01", 210, "4200.00", nil,
		map[string]bool{ada.ID: true, marcus.ID: true}); err != nil {
		return err
	}
	if err := h.seedSale(ctx, orchard, "2024-01", 80, "1600.00", nil,
		map[string]bool{priya.ID: true}); err != nil {
		return err
	}

	// Partially paid month.
	if err := h.seedSale(ctx, harbor, "2024-02", 180, "3600.00", nil,
		map[string]bool{ada.ID: true}); err != nil {
		return err
	}
	if err := h.seedSale(ctx, orchard, "2024-02", 95, "1900.00", nil, nil); err != nil {
		return err
	}

	// Current month, nothing paid yet.
	if err := h.seedSale(ctx, harbor, "2024-03", 240, "4800.00", nil, nil); err != nil {
		return err
	}
	return h.seedSale(ctx, orchard, "2024-03", 110, "2200.00", nil, nil)
}

// =============================================================================
// SCENARIO: ROYALTY OVERRIDES
// =============================================================================

func (h *Handler) loadRoyaltyOverridesScenario(ctx context.Context) error {
	ada, err := h.seedAuthor(ctx, "Ada Winters", "")
	if err != nil {
		return err
	}
	marcus, err := h.seedAuthor(ctx, "Marcus Bell", "")
	if err != nil {
		return err
	}

	harbor, err := h.seedBook(ctx, "The Glass Harbor", "2024-01-01", "9781250301697",
		[]royalty.AuthorShare{
			{AuthorID: ada.ID, Name: ada.Name, Rate: rate("0.10")},
			{AuthorID: marcus.ID, Name: marcus.Name, Rate: rate("0.05")},
		})
	if err != nil {
		return err
	}

	// Automatic amounts: 100.00 / 50.00.
	if err := h.seedSale(ctx, harbor, "2024-01", 50, "1000.00", nil, nil); err != nil {
		return err
	}

	// Ada's amount bumped by contract addendum; Marcus stays automatic.
	if err := h.seedSale(ctx, harbor, "2024-02", 50, "1000.00",
		map[string]string{ada.ID: "150.00"}, nil); err != nil {
		return err
	}

	// Both overridden, one waived entirely.
	return h.seedSale(ctx, harbor, "2024-03", 50, "1000.00",
		map[string]string{ada.ID: "175.00", marcus.ID: "0.00"},
		map[string]bool{marcus.ID: true})
}
