/*
validate.go - Submit-time validation for sale line items

PURPOSE:
  Turns an untrusted sale payload (Draft) into a validated LineItem, or a
  FieldErrors naming every violated field. Messages are user-facing and
  name the author where a royalty amount is at fault.

COMPLETENESS vs VALIDITY:
  A draft is "complete" when book, date, quantity and revenue are all
  present. It is "valid" when additionally: quantity is a positive
  integer, revenue is non-negative, the sale month is not earlier than the
  book's publication month, and no author royalty is negative.

PARTIAL EDITS:
  On edit, missing fields fall back to the existing record before the
  rules run, so a partial payload cannot dodge validation.
*/
package sales

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
)

// Draft is an unvalidated sale payload. Pointer fields distinguish
// "absent" from zero values; Quantity is float64 so a fractional input can
// be rejected with a message instead of a decode failure.
type Draft struct {
	BookID           string
	Date             string // "YYYY-MM" or "YYYY-MM-DD"; "" = missing
	Quantity         *float64
	PublisherRevenue *string
	AuthorRoyalties  map[string]string
	AuthorPaid       map[string]bool
}

// FillFrom backfills missing draft fields from an existing record, for
// partial edits.
func (d *Draft) FillFrom(existing LineItem) {
	if d.BookID == "" {
		d.BookID = existing.BookID
	}
	if d.Date == "" && !existing.Date.IsZero() {
		d.Date = existing.Date.FirstDay().Format("2006-01-02")
	}
	if d.Quantity == nil {
		q := float64(existing.Quantity)
		d.Quantity = &q
	}
	if d.PublisherRevenue == nil {
		r := existing.PublisherRevenue.StringFixed(2)
		d.PublisherRevenue = &r
	}
}

// Complete reports whether book, date, quantity and revenue are all
// present. Incomplete bulk rows that were never started are skipped, not
// rejected.
func (d *Draft) Complete() bool {
	return d.BookID != "" && d.Date != "" && d.Quantity != nil &&
		d.PublisherRevenue != nil && *d.PublisherRevenue != ""
}

// Started reports whether the user entered anything at all on this row.
func (d *Draft) Started() bool {
	return d.BookID != "" || d.Date != "" || d.Quantity != nil ||
		(d.PublisherRevenue != nil && *d.PublisherRevenue != "")
}

// Validate checks the draft against the selected book and returns the
// validated LineItem or field-keyed errors. The book may be nil when the
// draft carries no book id. Validation never mutates the draft.
func (d *Draft) Validate(book *catalog.Book) (LineItem, catalog.FieldErrors) {
	errs := catalog.FieldErrors{}
	item := LineItem{BookID: d.BookID}

	// Required fields. A complete draft can still fail here when its book
	// id did not resolve.
	if !d.Complete() || book == nil {
		if d.Quantity == nil {
			errs["quantity"] = "Quantity is required."
		}
		if d.BookID == "" || book == nil {
			errs["book"] = "Book is required."
		}
		if d.PublisherRevenue == nil || *d.PublisherRevenue == "" {
			errs["publisher_revenue"] = "Publisher revenue is required."
		}
	}

	var month Month
	if d.Date == "" {
		errs["date"] = "Date is required."
	} else if m, err := ParseMonth(d.Date); err != nil {
		errs["date"] = "Please provide sale date in month, year format."
	} else {
		month = m
		item.Date = m
	}

	// Logic checks, only where a value exists.
	if d.Quantity != nil {
		q := *d.Quantity
		if q != float64(int(q)) {
			errs["quantity"] = "Quantity must be a valid integer."
		} else if q <= 0 {
			errs["quantity"] = "Quantity must be a positive integer."
		} else {
			item.Quantity = int(q)
		}
	}

	if d.PublisherRevenue != nil && *d.PublisherRevenue != "" {
		rev, err := decimal.NewFromString(strings.TrimSpace(*d.PublisherRevenue))
		switch {
		case err != nil:
			errs["publisher_revenue"] = "Publisher revenue must be a valid decimal number."
		case rev.IsNegative():
			errs["publisher_revenue"] = "Publisher revenue cannot be negative."
		default:
			item.PublisherRevenue = rev
		}
	}

	// Sale month vs publication month (needs both to be valid).
	if !month.IsZero() && book != nil {
		pub := MonthOf(book.PublicationDate)
		if month.Before(pub) {
			errs["date"] = fmt.Sprintf(
				"Sale date (%s) cannot be before book publication date (%s).",
				month.FirstDay().Format("2006-01-02"),
				book.PublicationDate.Format("2006-01-02"),
			)
		}
	}

	// Author royalty overrides.
	if msg := validateRoyalties(d.AuthorRoyalties, book); msg != "" {
		errs["author_royalties"] = msg
	} else if len(d.AuthorRoyalties) > 0 {
		item.AuthorRoyalties = make(royalty.AmountMap, len(d.AuthorRoyalties))
		for id, v := range d.AuthorRoyalties {
			item.AuthorRoyalties[id] = v
		}
	}

	if len(d.AuthorPaid) > 0 {
		item.AuthorPaid = make(map[string]bool, len(d.AuthorPaid))
		for id, v := range d.AuthorPaid {
			item.AuthorPaid[id] = v
		}
	}

	if errs.Any() {
		return LineItem{}, errs
	}
	return item, nil
}

func validateRoyalties(amounts map[string]string, book *catalog.Book) string {
	if len(amounts) == 0 {
		return ""
	}

	ids := make([]string, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic message order

	var msgs []string
	for _, id := range ids {
		name := id
		if book != nil {
			name = book.AuthorName(id)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(amounts[id]))
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("Royalty amount for author %s must be a valid decimal number.", name))
			continue
		}
		if amount.IsNegative() {
			msgs = append(msgs, fmt.Sprintf("Royalty amount for author %s cannot be negative.", name))
		}
	}
	return strings.Join(msgs, "\n")
}
