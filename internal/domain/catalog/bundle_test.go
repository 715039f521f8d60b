package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ladiaria/utopia-billing/internal/types"
)

func TestProductBundleMatchesExactly(t *testing.T) {
	bundle := ProductBundle{
		ID:         "bundle_1",
		Name:       "Print and digital",
		ProductIDs: []string{"prod_a", "prod_b"},
	}

	assert.True(t, bundle.MatchesExactly([]string{"prod_a", "prod_b"}))
	assert.True(t, bundle.MatchesExactly([]string{"prod_b", "prod_a"}))
	assert.False(t, bundle.MatchesExactly([]string{"prod_a"}))
	assert.False(t, bundle.MatchesExactly([]string{"prod_a", "prod_b", "prod_c"}))
	assert.False(t, bundle.MatchesExactly([]string{"prod_a", "prod_c"}))
	assert.False(t, bundle.MatchesExactly(nil))
}

func TestAdvancedDiscountAmount(t *testing.T) {
	fixed := AdvancedDiscount{
		ValueMode: types.AdvancedDiscountValueFixed,
		Value:     decimal.NewFromInt(120),
	}
	// the sub-amount is ignored in fixed mode
	assert.True(t, fixed.Amount(decimal.NewFromInt(999)).Equal(decimal.NewFromInt(120)))

	pct := AdvancedDiscount{
		ValueMode: types.AdvancedDiscountValuePercentage,
		Value:     decimal.NewFromInt(25),
	}
	assert.True(t, pct.Amount(decimal.NewFromInt(1000)).Equal(decimal.NewFromInt(250)))

	// half away from zero
	rounding := AdvancedDiscount{
		ValueMode: types.AdvancedDiscountValuePercentage,
		Value:     decimal.NewFromInt(50),
	}
	assert.True(t, rounding.Amount(decimal.NewFromInt(101)).Equal(decimal.NewFromInt(51)))
}
