/*
session.go - Per-line-item editing state machine

PURPOSE:
  Tracks AUTO vs OVERRIDDEN state per author while one sale line item is
  being edited, and applies the reconciliation rule on every revenue or
  author-set change.

STATE MACHINE (per author):
  AUTO        -> OVERRIDDEN  on any direct edit of the royalty input
  OVERRIDDEN  -> AUTO        on blurring the input while its value is blank

  New line items start every author in AUTO. Hydrating a persisted record
  starts every persisted author in OVERRIDDEN: a stored amount may have been
  manually adjusted at save time and must not be silently recalculated on
  load.

BLANK RULE:
  Only "" clears an override. "0" and "0.00" are deliberate amounts and are
  preserved. The check is string emptiness, not numeric value.

SEE ALSO:
  - royalty.go: the pure Recalculate function this session drives
*/
package royalty

// ShareStatus is the derived per-author state: whether the amount tracks
// recalculation or is user-controlled.
type ShareStatus int

const (
	StatusAuto ShareStatus = iota
	StatusOverridden
)

func (s ShareStatus) String() string {
	if s == StatusOverridden {
		return "overridden"
	}
	return "auto"
}

// Session holds the editing state of one sale line item: the selected
// book's author shares, the current royalty amounts, and which of them the
// user has taken control of. It is scoped to a single open form and is
// never persisted.
type Session struct {
	authors   []AuthorShare
	revenue   string
	overrides Overrides
	amounts   AmountMap
}

// NewSession starts an empty editing session (new-entry mode): every
// author begins in AUTO.
func NewSession(authors []AuthorShare) *Session {
	return &Session{
		authors:   authors,
		overrides: make(Overrides),
		amounts:   make(AmountMap),
	}
}

// HydrateSession starts a session from a persisted record (edit mode).
// Every author with a persisted amount is marked OVERRIDDEN so that loading
// a record never rewrites amounts that may have been manually set.
func HydrateSession(authors []AuthorShare, persisted AmountMap) *Session {
	s := NewSession(authors)
	for id, amount := range persisted {
		s.amounts[id] = amount
		s.overrides[id] = true
	}
	return s
}

// SetRevenue records a revenue change and reconciles. Returns true if any
// amount changed.
func (s *Session) SetRevenue(revenue string) bool {
	s.revenue = revenue
	return s.recalculate()
}

// SetAmount records a direct edit of one author's royalty input. The
// author transitions to OVERRIDDEN and the typed value is stored verbatim.
func (s *Session) SetAmount(authorID, value string) {
	s.MarkOverride(authorID)
	s.amounts[authorID] = value
}

// MarkOverride transitions an author to OVERRIDDEN without touching the
// stored value. Recalculate will no longer write that author's amount.
func (s *Session) MarkOverride(authorID string) {
	s.overrides[authorID] = true
}

// ClearOverrideIfBlank is invoked on leaving a royalty input. If the
// current value is blank the author returns to AUTO and the next
// reconciliation restores the computed amount. "0" and "0.00" are not
// blank. Returns true if any amount changed as a result.
func (s *Session) ClearOverrideIfBlank(authorID string) bool {
	if s.amounts[authorID] != "" {
		return false
	}
	s.overrides[authorID] = false
	return s.recalculate()
}

// BookChanged replaces the author set and resets all overrides and
// amounts: rates from a different book are not comparable to the previous
// selection. Returns true if any amount changed.
func (s *Session) BookChanged(authors []AuthorShare) bool {
	s.authors = authors
	s.overrides = make(Overrides)
	s.amounts = make(AmountMap)
	return s.recalculate()
}

func (s *Session) recalculate() bool {
	next := Recalculate(s.authors, s.revenue, s.overrides, s.amounts)
	if Equal(s.amounts, next) {
		return false
	}
	s.amounts = next
	return true
}

// Status returns the state of one author's amount.
func (s *Session) Status(authorID string) ShareStatus {
	if s.overrides[authorID] {
		return StatusOverridden
	}
	return StatusAuto
}

// IsOverridden reports whether an author's amount is user-controlled.
// Exposed for visual indication of overridden fields.
func (s *Session) IsOverridden(authorID string) bool {
	return s.Status(authorID) == StatusOverridden
}

// Amounts returns a copy of the current royalty map.
func (s *Session) Amounts() AmountMap {
	return s.amounts.Clone()
}

// Amount returns one author's current value ("" if never set).
func (s *Session) Amount(authorID string) string {
	return s.amounts[authorID]
}

// OverriddenAmounts returns only the user-controlled entries, which is
// what gets submitted as explicit overrides in a sale payload.
func (s *Session) OverriddenAmounts() AmountMap {
	out := make(AmountMap)
	for id, on := range s.overrides {
		if !on {
			continue
		}
		if v, ok := s.amounts[id]; ok {
			out[id] = v
		}
	}
	return out
}
