package types

import (
	"fmt"

	"github.com/samber/lo"
)

// ProductType is the closed set of pricing behaviors a catalog product can have.
// Exactly one of these applies per priced line.
type ProductType string

const (
	ProductTypeSubscription       ProductType = "subscription"
	ProductTypeFlatDiscount       ProductType = "discount"
	ProductTypePercentageDiscount ProductType = "percentage_discount"
	ProductTypeAdvancedDiscount   ProductType = "advanced_discount"
	ProductTypeNewsletter         ProductType = "newsletter"
	ProductTypeOther              ProductType = "other"
)

func (t ProductType) String() string {
	return string(t)
}

func (t ProductType) Validate() error {
	allowed := []ProductType{
		ProductTypeSubscription,
		ProductTypeFlatDiscount,
		ProductTypePercentageDiscount,
		ProductTypeAdvancedDiscount,
		ProductTypeNewsletter,
		ProductTypeOther,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid product type: %s", t)
	}
	return nil
}

// IsDiscount reports whether the product subtracts from an invoice total
func (t ProductType) IsDiscount() bool {
	return t == ProductTypeFlatDiscount ||
		t == ProductTypePercentageDiscount ||
		t == ProductTypeAdvancedDiscount
}

// EditionFrequency describes how often a product is delivered.
// Value 4 marks a one-shot "single edition" product that is billed once
// and removed from the subscription afterwards.
type EditionFrequency int

const (
	EditionFrequencyDaily   EditionFrequency = 1
	EditionFrequencyWeekly  EditionFrequency = 2
	EditionFrequencyMonthly EditionFrequency = 3
	EditionFrequencyOneShot EditionFrequency = 4
)

// AdvancedDiscountValueMode selects how an advanced discount resolves its amount
type AdvancedDiscountValueMode int

const (
	// AdvancedDiscountValueFixed applies the configured value outright
	AdvancedDiscountValueFixed AdvancedDiscountValueMode = 1
	// AdvancedDiscountValuePercentage applies value% of the summed find_products amount
	AdvancedDiscountValuePercentage AdvancedDiscountValueMode = 2
)

func (m AdvancedDiscountValueMode) Validate() error {
	if m != AdvancedDiscountValueFixed && m != AdvancedDiscountValuePercentage {
		return fmt.Errorf("invalid advanced discount value mode: %d", m)
	}
	return nil
}
