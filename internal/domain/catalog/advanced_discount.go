package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// AdvancedDiscount resolves an advanced-discount product into an amount.
// At most one row exists per discount product.
type AdvancedDiscount struct {
	ID                string `json:"id" db:"id"`
	DiscountProductID string `json:"discount_product_id" db:"discount_product_id"`

	// FindProductIDs is the set of products whose presence in the resolved
	// map contributes to the provisional sub-amount
	FindProductIDs []string `json:"find_product_ids" db:"-"`

	ValueMode types.AdvancedDiscountValueMode `json:"value_mode" db:"value_mode"`

	// Value is the fixed currency amount or the percentage, per ValueMode
	Value decimal.Decimal `json:"value" db:"value"`

	types.BaseModel
}

// Amount resolves the discount against a provisional sub-amount already
// computed from the find products. Fixed mode discards the sub-amount.
func (d *AdvancedDiscount) Amount(subAmount decimal.Decimal) decimal.Decimal {
	if d.ValueMode == types.AdvancedDiscountValueFixed {
		return d.Value
	}
	return subAmount.Mul(d.Value).Div(decimal.NewFromInt(100)).Round(0)
}
