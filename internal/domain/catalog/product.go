package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/ladiaria/utopia-billing/internal/types"
)

// Product is a catalog entry: anything a subscription can carry, from the
// printed paper to a percentage discount.
type Product struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`

	Type types.ProductType `json:"type" db:"type"`

	// Price is the monthly unit price for subscription products. For
	// percentage discount products the field is overloaded to store the
	// percentage value.
	Price decimal.Decimal `json:"price" db:"price"`

	// BillingPriority orders products when resolving billing data for a
	// subscription; the lowest priority with a usable address wins
	BillingPriority *int `json:"billing_priority" db:"billing_priority"`

	// EditionFrequency 4 marks a one-shot product that is removed from the
	// subscription after it is billed once
	EditionFrequency *types.EditionFrequency `json:"edition_frequency" db:"edition_frequency"`

	// TemporaryDiscountMonths bounds how many billed months a discount
	// product survives before it is removed from the subscription
	TemporaryDiscountMonths *int `json:"temporary_discount_months" db:"temporary_discount_months"`

	// TargetProductID points discount products at the single product they
	// net against; nil discounts apply to the whole invoice
	TargetProductID *string `json:"target_product_id" db:"target_product_id"`

	// HasImplicitDiscount marks products whose price already carries a
	// discount, keeping them out of the frequency-discount base
	HasImplicitDiscount bool `json:"has_implicit_discount" db:"has_implicit_discount"`

	// Digital products have no physical delivery and bill against the
	// contact's email instead of a street address
	Digital bool `json:"digital" db:"digital"`

	types.BaseModel
}

// IsOneShot reports whether the product is billed once and then removed
func (p *Product) IsOneShot() bool {
	return p.EditionFrequency != nil && *p.EditionFrequency == types.EditionFrequencyOneShot
}

// IsTemporaryDiscount reports whether the product expires after a bounded
// number of billed months
func (p *Product) IsTemporaryDiscount() bool {
	return p.TemporaryDiscountMonths != nil && *p.TemporaryDiscountMonths >= 1
}
