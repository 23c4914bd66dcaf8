// snapshot.go - Per-author royalty rows for a new sale.
//
// Creating a sale freezes one AuthorRoyalty row per book author. The rows
// are a historical snapshot: later changes to the book's author set or
// rates never rewrite them.

package sales

import (
	"github.com/shopspring/decimal"

	"github.com/inkwell/royalty-engine/catalog"
	"github.com/inkwell/royalty-engine/royalty"
)

// SnapshotRoyalties builds the author-sale rows for a validated line item.
//
// Submitted amounts are explicit overrides: those authors keep the typed
// value. Every other book author gets the computed revenue x rate amount.
// This is the reconciliation rule applied one final time at persistence,
// with the override set derived from what the form submitted.
func SnapshotRoyalties(book *catalog.Book, item LineItem) []AuthorRoyalty {
	overrides := make(royalty.Overrides, len(item.AuthorRoyalties))
	current := make(royalty.AmountMap, len(item.AuthorRoyalties))
	for id, amount := range item.AuthorRoyalties {
		overrides[id] = true
		current[id] = amount
	}

	amounts := royalty.Recalculate(book.Authors, item.PublisherRevenue.String(), overrides, current)

	rows := make([]AuthorRoyalty, 0, len(book.Authors))
	for _, share := range book.Authors {
		amt, err := decimal.NewFromString(amounts[share.AuthorID])
		if err != nil {
			amt = decimal.Zero
		}
		rows = append(rows, AuthorRoyalty{
			AuthorID: share.AuthorID,
			Name:     share.Name,
			Amount:   amt,
			Paid:     item.AuthorPaid[share.AuthorID],
		})
	}
	return rows
}
