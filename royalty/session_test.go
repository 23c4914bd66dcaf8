package royalty_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/inkwell/royalty-engine/royalty"
)

// =============================================================================
// SESSION STATE MACHINE TESTS
// =============================================================================

func TestSession_NewEntry_AllAuto(t *testing.T) {
	// GIVEN: A fresh session for a two-author book
	// WHEN: Revenue is entered
	// THEN: Both amounts compute automatically

	s := royalty.NewSession(twoAuthors())

	changed := s.SetRevenue("1000")

	assert.True(t, changed)
	assert.Equal(t, "100.00", s.Amount("a1"))
	assert.Equal(t, "50.00", s.Amount("a2"))
	assert.Equal(t, royalty.StatusAuto, s.Status("a1"))
	assert.Equal(t, royalty.StatusAuto, s.Status("a2"))
}

func TestSession_DirectEditOverrides(t *testing.T) {
	// GIVEN: Revenue 1000 with automatic amounts
	// WHEN: a1's amount is edited to 75.00 and revenue changes to 2000
	// THEN: a1 stays at 75.00, a2 follows the new revenue

	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")

	s.SetAmount("a1", "75.00")
	s.SetRevenue("2000")

	assert.Equal(t, "75.00", s.Amount("a1"))
	assert.Equal(t, "100.00", s.Amount("a2"))
	assert.True(t, s.IsOverridden("a1"))
	assert.False(t, s.IsOverridden("a2"))
}

func TestSession_BlankClearsOverride(t *testing.T) {
	// GIVEN: a1 overridden, then its input cleared
	// WHEN: The input is blurred while blank
	// THEN: a1 returns to AUTO and the computed amount comes back

	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")
	s.SetAmount("a1", "75.00")

	s.SetAmount("a1", "")
	changed := s.ClearOverrideIfBlank("a1")

	assert.True(t, changed)
	assert.Equal(t, "100.00", s.Amount("a1"))
	assert.Equal(t, royalty.StatusAuto, s.Status("a1"))
}

func TestSession_ZeroDoesNotClearOverride(t *testing.T) {
	// "0" and "0.00" are deliberate amounts, not blanks.
	for _, v := range []string{"0", "0.00"} {
		s := royalty.NewSession(twoAuthors())
		s.SetRevenue("1000")
		s.SetAmount("a1", v)

		changed := s.ClearOverrideIfBlank("a1")

		assert.False(t, changed, "value %q", v)
		assert.Equal(t, v, s.Amount("a1"))
		assert.Equal(t, royalty.StatusOverridden, s.Status("a1"))
	}
}

func TestSession_BlurWithoutEditKeepsAuto(t *testing.T) {
	// Blurring an untouched (auto) field changes nothing.
	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")

	changed := s.ClearOverrideIfBlank("a1")

	assert.False(t, changed)
	assert.Equal(t, "100.00", s.Amount("a1"))
	assert.Equal(t, royalty.StatusAuto, s.Status("a1"))
}

func TestSession_BookChangeResetsEverything(t *testing.T) {
	// GIVEN: Overrides in place for the current book
	// WHEN: A different book is selected
	// THEN: All overrides drop and amounts recompute for the new authors

	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")
	s.SetAmount("a1", "75.00")

	next := []royalty.AuthorShare{
		{AuthorID: "b1", Name: "Priya Raman", Rate: decimal.RequireFromString("0.08")},
	}
	s.BookChanged(next)

	assert.Equal(t, "80.00", s.Amount("b1"))
	assert.Equal(t, "", s.Amount("a1"))
	assert.False(t, s.IsOverridden("a1"))
	assert.False(t, s.IsOverridden("b1"))
}

func TestSession_HydrationMarksAllOverridden(t *testing.T) {
	// GIVEN: A persisted sale with a manually adjusted amount
	// WHEN: The record is opened for editing and revenue is re-entered
	// THEN: No persisted amount is rewritten

	persisted := royalty.AmountMap{"a1": "33.33", "a2": "50.00"}
	s := royalty.HydrateSession(twoAuthors(), persisted)

	changed := s.SetRevenue("1000")

	assert.False(t, changed)
	assert.Equal(t, "33.33", s.Amount("a1"))
	assert.Equal(t, "50.00", s.Amount("a2"))
	assert.True(t, s.IsOverridden("a1"))
	assert.True(t, s.IsOverridden("a2"))
}

func TestSession_HydratedBlankRoundTrip(t *testing.T) {
	// Clearing a hydrated amount and blurring re-enters AUTO.
	s := royalty.HydrateSession(twoAuthors(), royalty.AmountMap{"a1": "33.33"})
	s.SetRevenue("1000")

	s.SetAmount("a1", "")
	s.ClearOverrideIfBlank("a1")

	assert.Equal(t, "100.00", s.Amount("a1"))
	assert.Equal(t, royalty.StatusAuto, s.Status("a1"))
}

func TestSession_OverriddenAmounts(t *testing.T) {
	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")
	s.SetAmount("a1", "75.00")

	out := s.OverriddenAmounts()

	assert.Equal(t, royalty.AmountMap{"a1": "75.00"}, out)
}

func TestSession_AmountsReturnsCopy(t *testing.T) {
	s := royalty.NewSession(twoAuthors())
	s.SetRevenue("1000")

	m := s.Amounts()
	m["a1"] = "tampered"

	assert.Equal(t, "100.00", s.Amount("a1"))
}
