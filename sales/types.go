/*
Package sales provides sale line items: one book, one month, one
quantity/revenue pair, and the per-author royalty and payment snapshot.

PURPOSE:
  A sale line item is created from form input (new entry or bulk rows) or
  hydrated from a persisted record for edit. Validation is invoked at
  submit time, not per keystroke, and reports field-scoped messages.

SNAPSHOT RULE:
  On create, each of the book's authors gets an author-sale row: the
  explicit override amount if one was entered, otherwise revenue x rate.
  These rows are a historical snapshot; editing a sale never rebuilds them
  unless the sale's book itself changes.

SEE ALSO:
  - month.go:    month-granularity dates
  - validate.go: submit-time validation
  - snapshot.go: per-author royalty rows from a validated line item
  - royalty:     the reconciliation engine driving form state
*/
package sales

import (
	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/royalty"
)

// LineItem is one validated sales record.
type LineItem struct {
	ID               string
	BookID           string
	Date             Month
	Quantity         int
	PublisherRevenue decimal.Decimal
	AuthorRoyalties  royalty.AmountMap // explicit overrides submitted with the sale
	AuthorPaid       map[string]bool
}

// AuthorRoyalty is one author's royalty row for a sale: the snapshotted
// amount owed and whether it has been paid.
type AuthorRoyalty struct {
	AuthorID string
	Name     string
	Amount   decimal.Decimal
	Paid     bool
}

// PaidStatus summarizes payment state across a sale's authors.
type PaidStatus int

const (
	PaidStatusFull PaidStatus = iota // every author paid
	PaidStatusPartial
	PaidStatusUnpaid
)

func (s PaidStatus) String() string {
	switch s {
	case PaidStatusFull:
		return "paid"
	case PaidStatusPartial:
		return "partial"
	default:
		return "unpaid"
	}
}

// PaidStatusOf classifies a sale's author rows. A sale with no rows counts
// as unpaid.
func PaidStatusOf(rows []AuthorRoyalty) PaidStatus {
	if len(rows) == 0 {
		return PaidStatusUnpaid
	}
	paid, unpaid := 0, 0
	for _, r := range rows {
		if r.Paid {
			paid++
		} else {
			unpaid++
		}
	}
	switch {
	case unpaid == 0:
		return PaidStatusFull
	case paid > 0:
		return PaidStatusPartial
	default:
		return PaidStatusUnpaid
	}
}
