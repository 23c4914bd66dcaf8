package royalty_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/royalty-engine/royalty"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func twoAuthors() []royalty.AuthorShare {
	return []royalty.AuthorShare{
		{AuthorID: "a1", Name: "Ada Winters", Rate: decimal.RequireFromString("0.10")},
		{AuthorID: "a2", Name: "Marcus Bell", Rate: decimal.RequireFromString("0.05")},
	}
}

// =============================================================================
// RECALCULATE TESTS
// =============================================================================

func TestRecalculate_AllAuto(t *testing.T) {
	// GIVEN: Two authors at 10% and 5%, no overrides
	// WHEN: Reconciling against revenue 1000
	// THEN: Amounts are rate x revenue, formatted to two decimals

	next := royalty.Recalculate(twoAuthors(), "1000", royalty.Overrides{}, royalty.AmountMap{})

	assert.Equal(t, "100.00", next["a1"])
	assert.Equal(t, "50.00", next["a2"])
}

func TestRecalculate_OverridePreserved(t *testing.T) {
	// GIVEN: a1's amount was manually set to 75.00
	// WHEN: Revenue changes to 2000
	// THEN: a1 keeps 75.00, a2 recomputes to 100.00

	overrides := royalty.Overrides{"a1": true}
	current := royalty.AmountMap{"a1": "75.00", "a2": "50.00"}

	next := royalty.Recalculate(twoAuthors(), "2000", overrides, current)

	assert.Equal(t, "75.00", next["a1"])
	assert.Equal(t, "100.00", next["a2"])
}

func TestRecalculate_Idempotent(t *testing.T) {
	// Reconciling twice with identical inputs yields identical output.
	overrides := royalty.Overrides{"a1": true}
	current := royalty.AmountMap{"a1": "75.00"}

	once := royalty.Recalculate(twoAuthors(), "1234.56", overrides, current)
	twice := royalty.Recalculate(twoAuthors(), "1234.56", overrides, once)

	assert.True(t, royalty.Equal(once, twice))
}

func TestRecalculate_UnparsableRevenueTreatedAsZero(t *testing.T) {
	next := royalty.Recalculate(twoAuthors(), "not a number", royalty.Overrides{}, royalty.AmountMap{})

	assert.Equal(t, "0.00", next["a1"])
	assert.Equal(t, "0.00", next["a2"])
}

func TestRecalculate_EmptyRevenueTreatedAsZero(t *testing.T) {
	next := royalty.Recalculate(twoAuthors(), "", royalty.Overrides{}, royalty.AmountMap{})

	assert.Equal(t, "0.00", next["a1"])
	assert.Equal(t, "0.00", next["a2"])
}

func TestRecalculate_DoesNotMutateInput(t *testing.T) {
	current := royalty.AmountMap{"a1": "1.00", "a2": "2.00"}

	_ = royalty.Recalculate(twoAuthors(), "1000", royalty.Overrides{}, current)

	assert.Equal(t, "1.00", current["a1"])
	assert.Equal(t, "2.00", current["a2"])
}

func TestRecalculate_RoundsHalfUp(t *testing.T) {
	// 333.33 * 0.10 = 33.333 -> 33.33; 333.35 * 0.05 = 16.6675 -> 16.67
	authors := []royalty.AuthorShare{
		{AuthorID: "a1", Rate: decimal.RequireFromString("0.10")},
	}
	next := royalty.Recalculate(authors, "333.33", royalty.Overrides{}, royalty.AmountMap{})
	assert.Equal(t, "33.33", next["a1"])

	authors[0].Rate = decimal.RequireFromString("0.05")
	next = royalty.Recalculate(authors, "333.35", royalty.Overrides{}, royalty.AmountMap{})
	assert.Equal(t, "16.67", next["a1"])
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestParseRevenue(t *testing.T) {
	require.True(t, royalty.ParseRevenue("12.50").Equal(decimal.RequireFromString("12.50")))
	require.True(t, royalty.ParseRevenue("").IsZero())
	require.True(t, royalty.ParseRevenue("abc").IsZero())
}

func TestComputedAmount_TwoDecimals(t *testing.T) {
	got := royalty.ComputedAmount(
		decimal.RequireFromString("1000"),
		decimal.RequireFromString("0.1"),
	)
	assert.Equal(t, "100.00", got)
}

func TestEqual(t *testing.T) {
	a := royalty.AmountMap{"x": "1.00"}
	b := royalty.AmountMap{"x": "1.00"}
	c := royalty.AmountMap{"x": "1.01"}

	assert.True(t, royalty.Equal(a, b))
	assert.False(t, royalty.Equal(a, c))
	assert.False(t, royalty.Equal(a, royalty.AmountMap{}))
}
