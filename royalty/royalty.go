/*
Package royalty implements the royalty reconciliation engine.

PURPOSE:
  Computes and maintains per-author royalty amounts for a single sales line
  item. Any author whose amount has not been manually overridden tracks the
  computed value publisher_revenue x royalty_rate; overridden authors keep
  whatever the user last typed until the override is cleared.

KEY CONCEPTS IN THIS FILE (royalty.go):
  - AuthorShare: an author's stake in a book (id, name, rate)
  - AmountMap:   authorId -> fixed two-decimal amount string
  - Overrides:   authorId -> whether the amount is user-controlled
  - Recalculate: the pure reconciliation function

DESIGN PRINCIPLES:
  1. Purity: Recalculate never mutates its inputs; it returns a fresh map
  2. Precision: Uses decimal.Decimal, never float64, for money
  3. Idempotence: a second call with unchanged inputs is a fixed point
  4. String amounts: values are exchanged as two-decimal strings because
     that is the wire and display format; "" is meaningfully distinct from "0.00"

USAGE:
  next := royalty.Recalculate(book.Authors, "1000.00", overrides, current)
  if !royalty.Equal(current, next) {
      // persist next into form state
  }

SEE ALSO:
  - session.go: per-line-item editing state machine (AUTO / OVERRIDDEN)
*/
package royalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TYPES
// =============================================================================

// AuthorShare is one author's stake in a book: who they are and what
// fraction of publisher revenue they are owed per sale.
type AuthorShare struct {
	AuthorID string
	Name     string
	Rate     decimal.Decimal // fraction of revenue, 0..1
}

// AmountMap maps an author id to a royalty amount formatted with exactly
// two decimal places (e.g. "100.00").
type AmountMap map[string]string

// Overrides maps an author id to whether their amount is user-controlled.
// A missing key means not overridden.
type Overrides map[string]bool

// Clone returns a copy of the map. A nil map clones to an empty map.
func (m AmountMap) Clone() AmountMap {
	out := make(AmountMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the override set.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// ParseRevenue parses a revenue string. Unparsable or empty input is
// treated as zero revenue, matching the form behavior where a cleared
// revenue field zeroes the computed royalties.
func ParseRevenue(revenue string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(revenue))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ComputedAmount returns revenue x rate rounded to two decimal places,
// formatted with exactly two decimals.
func ComputedAmount(revenue, rate decimal.Decimal) string {
	return revenue.Mul(rate).StringFixed(2)
}

// =============================================================================
// RECALCULATE - The reconciliation rule
// =============================================================================

// Recalculate produces the next royalty map for a line item.
//
// For each author NOT marked overridden, the amount is recomputed from
// revenue x rate. For each overridden author the current value is copied
// unchanged (or stays absent if never set). Entries for authors outside
// the given author list are preserved as-is; BookChanged is the operation
// that clears them.
//
// Inputs are never mutated. Calling Recalculate twice with the same inputs
// yields an equal map: a fixed point is reached after one call.
func Recalculate(authors []AuthorShare, revenue string, overrides Overrides, current AmountMap) AmountMap {
	next := current.Clone()
	rev := ParseRevenue(revenue)

	for _, a := range authors {
		if overrides[a.AuthorID] {
			continue // user-controlled, leave whatever is there
		}
		next[a.AuthorID] = ComputedAmount(rev, a.Rate)
	}
	return next
}

// Equal reports whether two royalty maps have the same key set and values.
// Callers use it to avoid signaling redundant updates.
func Equal(a, b AmountMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
