package types

import (
	"fmt"

	"github.com/samber/lo"
)

// InvoiceItemType determines the sign an item contributes to the invoice total
type InvoiceItemType string

const (
	// InvoiceItemTypeItem adds price * copies to the total
	InvoiceItemTypeItem InvoiceItemType = "item"
	// InvoiceItemTypeDiscount subtracts its amount from the total
	InvoiceItemTypeDiscount InvoiceItemType = "discount"
	// InvoiceItemTypeSurcharge adds its amount to the total
	InvoiceItemTypeSurcharge InvoiceItemType = "surcharge"
)

func (t InvoiceItemType) String() string {
	return string(t)
}

func (t InvoiceItemType) Validate() error {
	allowed := []InvoiceItemType{
		InvoiceItemTypeItem,
		InvoiceItemTypeDiscount,
		InvoiceItemTypeSurcharge,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid invoice item type: %s", t)
	}
	return nil
}

// ItemDRType is descriptive only: amounts are always resolved to absolute
// currency before an item is stored
type ItemDRType int

const (
	ItemDRTypeValue      ItemDRType = 1
	ItemDRTypePercentage ItemDRType = 2
)
